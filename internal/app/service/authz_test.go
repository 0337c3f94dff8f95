package service

import (
	"testing"

	"miniblog/internal/domain/model"
)

func TestCanMutate(t *testing.T) {
	alice := &model.User{ID: "u-alice"}
	bob := &model.User{ID: "u-bob"}
	post := &model.Post{ID: "p-1", AuthorID: "u-alice"}

	cases := []struct {
		name  string
		actor *model.User
		want  bool
	}{
		{"author", alice, true},
		{"other authenticated user", bob, false},
		{"anonymous", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanMutate(tc.actor, post); got != tc.want {
				t.Fatalf("CanMutate = %v, want %v", got, tc.want)
			}
		})
	}
}
