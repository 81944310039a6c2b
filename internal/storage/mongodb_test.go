package storage

import "testing"

func TestClampHistoryLimit(t *testing.T) {
	cases := map[int]int{
		-5:   20,
		0:    20,
		1:    1,
		50:   50,
		100:  100,
		1000: MaxHistoryLimit,
	}
	for in, want := range cases {
		if got := ClampHistoryLimit(in); got != want {
			t.Errorf("ClampHistoryLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestMongoStore_CloseNil(t *testing.T) {
	var store *MongoStore
	store.Close()
}
