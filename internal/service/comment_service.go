package service

import (
	"context"
	"sort"
	"strings"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/observability"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	productRepo repository.ProductRepository
	pub         Publisher
}

type PostCommentInput struct {
	Item     models.ItemRef
	Body     string
	ParentID *uint
}

func NewCommentService(commentRepo repository.CommentRepository, productRepo repository.ProductRepository, pub Publisher) *CommentService {
	return &CommentService{commentRepo: commentRepo, productRepo: productRepo, pub: orNop(pub)}
}

// PostComment adds a root comment or a reply to a root comment of the same
// item.
func (s *CommentService) PostComment(ctx context.Context, actor policy.Principal, in PostCommentInput) (*models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	comment, err := s.postComment(ctx, actor, in)
	if err != nil {
		return nil, failed(ctx, s.pub, actor, "post_comment", in.Item.String(), err)
	}
	return comment, nil
}

func (s *CommentService) postComment(ctx context.Context, actor policy.Principal, in PostCommentInput) (*models.Comment, error) {
	if !in.Item.Kind.Valid() || in.Item.ID == 0 {
		return nil, models.NewValidationError("invalid item reference")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(body) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	if err := checkProductVisible(ctx, s.productRepo, actor, in.Item); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Ref() != in.Item {
			return nil, models.NewValidationError("Parent comment belongs to another item")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("Replies cannot be nested")
		}
	}

	comment := &models.Comment{
		ItemKind:   in.Item.Kind,
		ItemID:     in.Item.ID,
		AuthorID:   actor.UserID,
		AuthorName: actor.DisplayName(),
		Body:       body,
		ParentID:   in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	observability.CommentsChanged.WithLabelValues(string(in.Item.Kind), "create").Inc()
	publish(ctx, s.pub, notifications.ThreadTopic(in.Item), notifications.EventCommentCreated, comment)
	return comment, nil
}

// DeleteComment removes a comment on behalf of its author or a moderator.
func (s *CommentService) DeleteComment(ctx context.Context, actor policy.Principal, commentID uint) (*models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, failed(ctx, s.pub, actor, "delete_comment", "", err)
	}
	if !policy.CanModify(actor, comment.AuthorID) {
		return nil, failed(ctx, s.pub, actor, "delete_comment", comment.Ref().String(),
			models.NewUnauthorizedError("You can only delete your own comments"))
	}
	return s.RemoveComment(ctx, commentID)
}

// RemoveComment deletes without an ownership check. Replies stay stored and
// drop out of the thread view.
func (s *CommentService) RemoveComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.Delete(ctx, commentID)
	if err != nil {
		return nil, err
	}
	observability.CommentsChanged.WithLabelValues(string(comment.ItemKind), "delete").Inc()
	publish(ctx, s.pub, notifications.ThreadTopic(comment.Ref()), notifications.EventCommentDeleted, map[string]any{
		"comment_id": comment.ID,
		"parent_id":  comment.ParentID,
	})
	return comment, nil
}

// GetThread returns the item's comments as roots with their replies.
func (s *CommentService) GetThread(ctx context.Context, ref models.ItemRef) ([]*models.ThreadNode, error) {
	if !ref.Kind.Valid() {
		return nil, models.NewValidationError("invalid item kind")
	}
	comments, err := s.commentRepo.ListByItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	return BuildThread(comments), nil
}

// BuildThread groups replies under their roots. Roots and replies are
// ordered oldest first; replies whose root is absent are dropped.
func BuildThread(comments []*models.Comment) []*models.ThreadNode {
	roots := make([]*models.ThreadNode, 0)
	byID := make(map[uint]*models.ThreadNode)
	for _, c := range comments {
		if c.IsReply() {
			continue
		}
		node := &models.ThreadNode{Comment: c, Replies: []*models.Comment{}}
		roots = append(roots, node)
		byID[c.ID] = node
	}
	for _, c := range comments {
		if !c.IsReply() {
			continue
		}
		if root, ok := byID[*c.ParentID]; ok {
			root.Replies = append(root.Replies, c)
		}
	}

	sort.SliceStable(roots, func(i, j int) bool { return olderComment(roots[i].Comment, roots[j].Comment) })
	for _, root := range roots {
		replies := root.Replies
		sort.SliceStable(replies, func(i, j int) bool { return olderComment(replies[i], replies[j]) })
	}
	return roots
}

func olderComment(a, b *models.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
