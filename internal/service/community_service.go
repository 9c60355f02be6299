package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrAlreadyLiked    = errors.New("post already liked")
	ErrNotLiked        = errors.New("post not liked")
)

const (
	maxPostLength    = 2000
	maxCommentLength = 500
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// PostView is a post with a displayable image URL.
type PostView struct {
	domain.Post
	ImageURL string `json:"imageUrl,omitempty"`
}

// PostDetail is a post and its visible comments.
type PostDetail struct {
	PostView
	Comments []domain.Comment `json:"comments"`
}

type CommunityService interface {
	CreatePost(ctx context.Context, s domain.Session, content, imageKey string) (*PostView, error)
	// Feed pages through the gym's posts, newest first. Admins also see
	// hidden posts.
	Feed(ctx context.Context, s domain.Session, limit, offset int64) ([]PostView, error)
	GetPost(ctx context.Context, s domain.Session, id primitive.ObjectID) (*PostDetail, error)
	Comment(ctx context.Context, s domain.Session, postID primitive.ObjectID, content string) (*domain.Comment, error)
	Like(ctx context.Context, s domain.Session, postID primitive.ObjectID) error
	Unlike(ctx context.Context, s domain.Session, postID primitive.ObjectID) error
	Report(ctx context.Context, s domain.Session, postID primitive.ObjectID) error
	RequestImageUpload(ctx context.Context, s domain.Session, contentType string) (*UploadTicket, error)

	// Moderation
	SetPostHidden(ctx context.Context, s domain.Session, postID primitive.ObjectID, hidden bool) error
	SetCommentHidden(ctx context.Context, s domain.Session, commentID primitive.ObjectID, hidden bool) error
	DeletePost(ctx context.Context, s domain.Session, postID primitive.ObjectID) error
	ListReported(ctx context.Context, s domain.Session) ([]PostView, error)
}

type communityService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
	profileRepo repository.ProfileRepository
	storage     storage.FileStorage
	notifier    Notifier
	log         *zap.SugaredLogger
}

func NewCommunityService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	profileRepo repository.ProfileRepository,
	fileStorage storage.FileStorage,
	notifier Notifier,
	log *zap.SugaredLogger,
) CommunityService {
	return &communityService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		profileRepo: profileRepo,
		storage:     fileStorage,
		notifier:    notifier,
		log:         log,
	}
}

func (s *communityService) view(p domain.Post) PostView {
	return PostView{Post: p, ImageURL: s.storage.PublicURL(p.ImageKey)}
}

func (s *communityService) views(posts []domain.Post) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.view(p))
	}
	return out
}

func validateText(field, text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(text) > limit {
		return "", fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, field, limit)
	}
	return text, nil
}

func (s *communityService) CreatePost(ctx context.Context, sess domain.Session, content, imageKey string) (*PostView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	content, err := validateText("content", content, maxPostLength)
	if err != nil {
		return nil, err
	}
	if imageKey != "" && !storage.KeyBelongsTo(imageKey, storage.PrefixPosts, sess.GymID, sess.UserID) {
		return nil, ErrForeignKey
	}
	author, err := s.profileRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	post := &domain.Post{
		GymID:      sess.GymID,
		AuthorID:   sess.UserID,
		AuthorName: author.Name,
		Content:    content,
		ImageKey:   imageKey,
	}
	id, err := s.postRepo.Create(ctx, post)
	if err != nil {
		return nil, err
	}
	post.ID = id
	v := s.view(*post)
	return &v, nil
}

func (s *communityService) Feed(ctx context.Context, sess domain.Session, limit, offset int64) ([]PostView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	limit = min(limit, maxFeedLimit)
	offset = max(offset, 0)
	posts, err := s.postRepo.Feed(ctx, sess.GymID, sess.IsAdmin(), repository.Page{Limit: limit, Skip: offset})
	if err != nil {
		return nil, err
	}
	return s.views(posts), nil
}

// post loads a post visible to the session.
func (s *communityService) post(ctx context.Context, sess domain.Session, id primitive.ObjectID) (*domain.Post, error) {
	p, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if p.GymID != sess.GymID {
		return nil, ErrPostNotFound
	}
	if p.Hidden && !sess.IsAdmin() && p.AuthorID != sess.UserID {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *communityService) GetPost(ctx context.Context, sess domain.Session, id primitive.ObjectID) (*PostDetail, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	p, err := s.post(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, p.ID, sess.IsAdmin())
	if err != nil {
		return nil, err
	}
	return &PostDetail{PostView: s.view(*p), Comments: comments}, nil
}

func (s *communityService) Comment(ctx context.Context, sess domain.Session, postID primitive.ObjectID, content string) (*domain.Comment, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	content, err := validateText("comment", content, maxCommentLength)
	if err != nil {
		return nil, err
	}
	p, err := s.post(ctx, sess, postID)
	if err != nil {
		return nil, err
	}
	author, err := s.profileRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	c := &domain.Comment{
		PostID:     p.ID,
		GymID:      p.GymID,
		AuthorID:   sess.UserID,
		AuthorName: author.Name,
		Content:    content,
	}
	id, err := s.commentRepo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.postRepo.IncrementCounter(ctx, p.ID, repository.CounterComments, 1); err != nil {
		s.log.Warnw("failed to bump comment count", "post", p.ID.Hex(), "error", err)
	}
	if p.AuthorID != sess.UserID {
		notifyQuietly(ctx, s.notifier, s.log, p.AuthorID, p.GymID, domain.NotifyComment,
			author.Name+" commented on your post", excerpt(content))
	}
	return c, nil
}

func (s *communityService) Like(ctx context.Context, sess domain.Session, postID primitive.ObjectID) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	p, err := s.post(ctx, sess, postID)
	if err != nil {
		return err
	}
	if err := s.likeRepo.Create(ctx, &domain.Like{PostID: p.ID, UserID: sess.UserID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyLiked
		}
		return err
	}
	if err := s.postRepo.IncrementCounter(ctx, p.ID, repository.CounterLikes, 1); err != nil {
		return err
	}
	if p.AuthorID != sess.UserID {
		liker, err := s.profileRepo.GetByID(ctx, sess.UserID)
		if err != nil {
			s.log.Warnw("failed to load liker profile", "user", sess.UserID.Hex(), "error", err)
			return nil
		}
		notifyQuietly(ctx, s.notifier, s.log, p.AuthorID, p.GymID, domain.NotifyLike,
			liker.Name+" liked your post", excerpt(p.Content))
	}
	return nil
}

func (s *communityService) Unlike(ctx context.Context, sess domain.Session, postID primitive.ObjectID) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	p, err := s.post(ctx, sess, postID)
	if err != nil {
		return err
	}
	if err := s.likeRepo.Delete(ctx, p.ID, sess.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotLiked
		}
		return err
	}
	return s.postRepo.IncrementCounter(ctx, p.ID, repository.CounterLikes, -1)
}

func (s *communityService) Report(ctx context.Context, sess domain.Session, postID primitive.ObjectID) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	p, err := s.post(ctx, sess, postID)
	if err != nil {
		return err
	}
	s.log.Infow("post reported", "post", p.ID.Hex(), "reporter", sess.UserID.Hex())
	return s.postRepo.IncrementCounter(ctx, p.ID, repository.CounterReports, 1)
}

func (s *communityService) RequestImageUpload(ctx context.Context, sess domain.Session, contentType string) (*UploadTicket, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return presignUpload(ctx, s.storage, storage.PrefixPosts, sess.GymID, sess.UserID, contentType)
}

func (s *communityService) SetPostHidden(ctx context.Context, sess domain.Session, postID primitive.ObjectID, hidden bool) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.postRepo.SetHidden(ctx, postID, sess.GymID, hidden); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

func (s *communityService) SetCommentHidden(ctx context.Context, sess domain.Session, commentID primitive.ObjectID, hidden bool) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	c, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if c.GymID != sess.GymID {
		return ErrCommentNotFound
	}
	if c.Hidden == hidden {
		return nil
	}
	if err := s.commentRepo.SetHidden(ctx, c.ID, sess.GymID, hidden); err != nil {
		return err
	}
	delta := 1
	if hidden {
		delta = -1
	}
	return s.postRepo.IncrementCounter(ctx, c.PostID, repository.CounterComments, delta)
}

// DeletePost removes a post with its comments and likes. Authors may
// delete their own posts.
func (s *communityService) DeletePost(ctx context.Context, sess domain.Session, postID primitive.ObjectID) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	p, err := s.post(ctx, sess, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != sess.UserID && !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := s.postRepo.Delete(ctx, p.ID, p.GymID); err != nil {
		return err
	}
	if err := s.commentRepo.DeleteByPost(ctx, p.ID); err != nil {
		s.log.Warnw("failed to delete comments of post", "post", p.ID.Hex(), "error", err)
	}
	if err := s.likeRepo.DeleteByPost(ctx, p.ID); err != nil {
		s.log.Warnw("failed to delete likes of post", "post", p.ID.Hex(), "error", err)
	}
	if p.ImageKey != "" {
		if err := s.storage.DeleteObject(ctx, p.ImageKey); err != nil {
			s.log.Warnw("failed to delete post image", "key", p.ImageKey, "error", err)
		}
	}
	return nil
}

func (s *communityService) ListReported(ctx context.Context, sess domain.Session) ([]PostView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListReported(ctx, sess.GymID)
	if err != nil {
		return nil, err
	}
	return s.views(posts), nil
}

func excerpt(text string) string {
	const n = 80
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
