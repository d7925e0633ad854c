package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByItemFn func(context.Context, models.ItemRef) ([]*models.Comment, error)
	deleteFn     func(context.Context, uint) (*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByItem(ctx context.Context, ref models.ItemRef) ([]*models.Comment, error) {
	return s.listByItemFn(ctx, ref)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) (*models.Comment, error) {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:    func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByItemFn: func(_ context.Context, _ models.ItemRef) ([]*models.Comment, error) { return nil, nil },
		deleteFn:     func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
	}
}

func uintPtr(v uint) *uint { return &v }

func TestCommentService_PostComment_Validation(t *testing.T) {
	t.Parallel()

	repo := noopCommentRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		switch id {
		case 1:
			return &models.Comment{ID: 1, ItemKind: models.ItemKindPost, ItemID: 7}, nil
		case 2:
			return &models.Comment{ID: 2, ItemKind: models.ItemKindPost, ItemID: 7, ParentID: uintPtr(1)}, nil
		}
		return nil, models.NewNotFoundError("Comment", id)
	}
	svc := NewCommentService(repo, nil, nil)
	post7 := models.ItemRef{Kind: models.ItemKindPost, ID: 7}

	tests := []struct {
		name  string
		input PostCommentInput
	}{
		{name: "empty body", input: PostCommentInput{Item: post7, Body: "   "}},
		{name: "body too long", input: PostCommentInput{Item: post7, Body: strings.Repeat("x", 10001)}},
		{name: "unknown kind", input: PostCommentInput{Item: models.ItemRef{Kind: "recipe", ID: 7}, Body: "hi"}},
		{name: "parent on another item", input: PostCommentInput{Item: models.ItemRef{Kind: models.ItemKindArticle, ID: 7}, Body: "hi", ParentID: uintPtr(1)}},
		{name: "reply to a reply", input: PostCommentInput{Item: post7, Body: "hi", ParentID: uintPtr(2)}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.PostComment(context.Background(), member, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestCommentService_PostComment_RequiresActor(t *testing.T) {
	svc := NewCommentService(noopCommentRepo(), nil, nil)
	_, err := svc.PostComment(context.Background(), anonymous, PostCommentInput{
		Item: models.ItemRef{Kind: models.ItemKindPost, ID: 1},
		Body: "hello",
	})
	assertCode(t, err, models.CodeUnauthenticated)
}

func TestCommentService_PostComment_PublishesToThread(t *testing.T) {
	pub := &recordingPublisher{}
	repo := noopCommentRepo()
	repo.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = 42
		return nil
	}
	svc := NewCommentService(repo, nil, pub)
	ref := models.ItemRef{Kind: models.ItemKindArticle, ID: 3}

	comment, err := svc.PostComment(context.Background(), member, PostCommentInput{Item: ref, Body: "  Try jowar too  "})
	require.NoError(t, err)
	assert.Equal(t, "Try jowar too", comment.Body)
	assert.Equal(t, "Meera", comment.AuthorName)

	events := pub.ofType(notifications.EventCommentCreated)
	require.Len(t, events, 1)
	assert.Equal(t, notifications.ThreadTopic(ref), events[0].topic)
}

func TestCommentService_FailureIsReportedToActor(t *testing.T) {
	pub := &recordingPublisher{}
	repo := noopCommentRepo()
	repo.createFn = func(_ context.Context, c *models.Comment) error {
		return models.NewNotFoundError("post", c.ItemID)
	}
	svc := NewCommentService(repo, nil, pub)

	_, err := svc.PostComment(context.Background(), member, PostCommentInput{
		Item: models.ItemRef{Kind: models.ItemKindPost, ID: 5},
		Body: "hello",
	})
	assertCode(t, err, models.CodeNotFound)

	failures := pub.ofType(notifications.EventMutationFailed)
	require.Len(t, failures, 1)
	assert.Equal(t, member.UserID, failures[0].userID)
	payload, ok := failures[0].event.Payload.(notifications.MutationFailure)
	require.True(t, ok)
	assert.Equal(t, "post_comment", payload.Operation)
	assert.Equal(t, models.CodeNotFound, payload.Code)
	assert.Equal(t, "post:5", payload.Target)
}

func TestCommentService_DeleteComment_Ownership(t *testing.T) {
	repo := noopCommentRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, ItemKind: models.ItemKindPost, ItemID: 1, AuthorID: member.UserID}, nil
	}
	deleted := 0
	repo.deleteFn = func(_ context.Context, id uint) (*models.Comment, error) {
		deleted++
		return &models.Comment{ID: id, ItemKind: models.ItemKindPost, ItemID: 1}, nil
	}
	svc := NewCommentService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.DeleteComment(ctx, otherUser, 9)
	assertUnauthorizedError(t, err)
	assert.Equal(t, 0, deleted)

	_, err = svc.DeleteComment(ctx, member, 9)
	require.NoError(t, err)
	_, err = svc.DeleteComment(ctx, moderator, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}

func TestBuildThread(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	comments := []*models.Comment{
		{ID: 5, Body: "late root", CreatedAt: base.Add(3 * time.Minute)},
		{ID: 2, Body: "reply b", ParentID: uintPtr(1), CreatedAt: base.Add(2 * time.Minute)},
		{ID: 1, Body: "first root", CreatedAt: base},
		{ID: 3, Body: "reply a", ParentID: uintPtr(1), CreatedAt: base.Add(time.Minute)},
		{ID: 4, Body: "orphan", ParentID: uintPtr(77), CreatedAt: base},
		{ID: 6, Body: "tie root", CreatedAt: base.Add(3 * time.Minute)},
	}

	thread := BuildThread(comments)
	require.Len(t, thread, 3)
	assert.Equal(t, uint(1), thread[0].ID)
	assert.Equal(t, uint(5), thread[1].ID)
	assert.Equal(t, uint(6), thread[2].ID, "equal timestamps fall back to id order")

	require.Len(t, thread[0].Replies, 2)
	assert.Equal(t, "reply a", thread[0].Replies[0].Body)
	assert.Equal(t, "reply b", thread[0].Replies[1].Body)
	assert.NotNil(t, thread[1].Replies)
	assert.Empty(t, thread[1].Replies)
}

func TestBuildThread_Empty(t *testing.T) {
	thread := BuildThread(nil)
	assert.NotNil(t, thread)
	assert.Empty(t, thread)
}

func TestCommentService_DeletedRootHidesReplies(t *testing.T) {
	s := newServices(t, "")
	ctx := context.Background()
	item := s.post(t, member, "Ragi porridge")

	root, err := s.comments.PostComment(ctx, member, PostCommentInput{Item: item.Ref(), Body: "root"})
	require.NoError(t, err)
	_, err = s.comments.PostComment(ctx, otherUser, PostCommentInput{Item: item.Ref(), Body: "reply", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = s.comments.DeleteComment(ctx, member, root.ID)
	require.NoError(t, err)

	thread, err := s.comments.GetThread(ctx, item.Ref())
	require.NoError(t, err)
	assert.Empty(t, thread)

	got, err := s.items.GetItem(ctx, member, item.Ref())
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount, "the reply is still stored and counted")
}
