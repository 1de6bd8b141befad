package service

import "github.com/quillhub/blog/internal/core/domain"

// CanMutatePost is the only authorization rule: a post may be updated or
// deleted by its author and nobody else.
func CanMutatePost(actor *domain.User, post *domain.Post) error {
	if actor == nil || post == nil || actor.ID == "" || post.AuthorID != actor.ID {
		return domain.ErrForbidden
	}
	return nil
}
