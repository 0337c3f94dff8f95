package service

import (
	"miniblog/internal/domain/model"
)

// CanMutate decides whether an actor may edit or delete a post: only the
// authenticated author may. A nil actor is anonymous. Reads are public and
// never consult this.
func CanMutate(actor *model.User, post *model.Post) bool {
	return actor != nil && post != nil && actor.ID == post.AuthorID
}
