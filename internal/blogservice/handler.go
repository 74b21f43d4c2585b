package blogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/trendstalk/trendstalk/internal/common"
)

func NewBlogService(db *sql.DB, c *common.Cache, mb common.MessageProducer) *BlogService {
	return &BlogService{m: newBlogModel(db), c: c, mb: mb}
}

type CreatePostRequest struct {
	UserID     int
	Title      string
	Content    string
	Tags       []string
	CategoryID int
	Images     []Image
}

// CreatePost stores a new post with its images. The category must exist and
// at least one image is required.
func (s *BlogService) CreatePost(ctx context.Context, req *CreatePostRequest) (*Post, error) {
	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateContent(v, req.Content)
	validateTags(v, req.Tags)
	validateInt(v, req.CategoryID, "category")
	validateInt(v, req.UserID, "user_id")
	v.Check(len(req.Images) >= 1, "images", "at least one image must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	category, err := s.m.getCategoryByID(ctx, req.CategoryID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, ErrCategoryNotFound
		default:
			return nil, err
		}
	}

	post := &Post{
		UserID:     req.UserID,
		Title:      req.Title,
		Content:    sanitizeMarkdown(req.Content),
		Tags:       req.Tags,
		CategoryID: category.ID,
		Category:   category.Title,
		Images:     req.Images,
	}

	if err := s.m.insertPost(ctx, post); err != nil {
		return nil, err
	}

	s.c.Flush()

	return post, nil
}

// GetPost fetches a post and records a view for the authenticated viewer.
// Anonymous viewers (viewerID == 0) are never recorded and may be served
// from cache.
func (s *BlogService) GetPost(ctx context.Context, id, viewerID int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if viewerID == 0 {
		if cached, ok := s.c.Get(common.CacheKeyPost(id)); ok {
			return cached.(*Post), nil
		}
	} else {
		if err := s.m.recordView(ctx, id, viewerID); err != nil {
			return nil, err
		}
	}

	post, err := s.m.getPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if viewerID == 0 {
		s.c.Set(common.CacheKeyPost(id), post)
	}

	return post, nil
}

// GetPostByID fetches a post without recording a view. Used by handlers that
// need the record for ownership checks before mutating it.
func (s *BlogService) GetPostByID(ctx context.Context, id int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getPostByID(ctx, id)
}

// GetPosts lists post summaries newest first. When a tag or author filter is
// supplied, zero matches is reported as ErrRecordNotFound.
func (s *BlogService) GetPosts(ctx context.Context, f Filters) ([]PostSummary, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	filtered := len(f.Tags) > 0 || f.Author != ""

	if !filtered {
		if cached, ok := s.c.Get(common.CacheKeyPosts(f.Page, f.Limit)); ok {
			return cached.([]PostSummary), nil
		}
	}

	posts, err := s.m.getPosts(ctx, f)
	if err != nil {
		return nil, err
	}

	if filtered && len(posts) == 0 {
		return nil, ErrRecordNotFound
	}

	if !filtered {
		s.c.Set(common.CacheKeyPosts(f.Page, f.Limit), posts)
	}

	return posts, nil
}

// SearchPosts matches the query against post titles, content, tags, and
// author usernames. Zero matches is an error, mirroring the listing
// behaviour.
func (s *BlogService) SearchPosts(ctx context.Context, query string) ([]PostSummary, error) {
	v := common.NewValidator()
	v.Check(query != "", "query", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	posts, err := s.m.searchPosts(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(posts) == 0 {
		return nil, ErrRecordNotFound
	}

	return posts, nil
}

// Feed builds a personalized feed from the tags of posts the user has liked
// or viewed. With no interaction history it falls back to a paginated
// most-viewed listing; otherwise it returns every post sharing a tag with
// that history, unpaginated.
func (s *BlogService) Feed(ctx context.Context, userID, page, limit int) ([]PostSummary, error) {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	tags, err := s.m.interactedTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(tags) == 0 {
		return s.m.popularPosts(ctx, limit, (page-1)*limit)
	}

	return s.m.postsByTags(ctx, tags)
}

type UpdatePostRequest struct {
	ID         int
	Title      string
	Content    string
	Tags       []string
	CategoryID int
	Images     []Image
}

// UpdatePost applies a partial patch: only supplied non-empty fields change.
// The boolean result reports whether anything was applied; an empty patch is
// not an error.
func (s *BlogService) UpdatePost(ctx context.Context, req *UpdatePostRequest) (*Post, bool, error) {
	post, err := s.m.getPostByID(ctx, req.ID)
	if err != nil {
		return nil, false, err
	}

	changed := false

	if req.Title != "" {
		post.Title = req.Title
		changed = true
	}
	if req.Content != "" {
		post.Content = sanitizeMarkdown(req.Content)
		changed = true
	}
	if len(req.Tags) > 0 {
		post.Tags = req.Tags
		changed = true
	}
	if req.CategoryID != 0 && req.CategoryID != post.CategoryID {
		category, err := s.m.getCategoryByID(ctx, req.CategoryID)
		if err != nil {
			switch {
			case errors.Is(err, ErrRecordNotFound):
				return nil, false, ErrCategoryNotFound
			default:
				return nil, false, err
			}
		}
		post.CategoryID = category.ID
		post.Category = category.Title
		changed = true
	}

	images := post.Images
	if len(req.Images) > 0 {
		post.Images = req.Images
		changed = true
	} else {
		// nil signals the model to leave image rows alone
		post.Images = nil
	}

	if !changed {
		post.Images = images
		return post, false, nil
	}

	v := common.NewValidator()
	validateTitle(v, post.Title)
	validateContent(v, post.Content)
	validateTags(v, post.Tags)
	if !v.Valid() {
		return nil, false, v.ValidationError()
	}

	if err := s.m.updatePost(ctx, post); err != nil {
		return nil, false, err
	}

	if post.Images == nil {
		post.Images = images
	}

	s.c.Flush()

	return post, true, nil
}

// DeletePost removes the post and hands its image object keys to the media
// cleanup worker via a post.deleted event.
func (s *BlogService) DeletePost(ctx context.Context, id int) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	keys, err := s.m.deletePost(ctx, id)
	if err != nil {
		return err
	}

	s.c.Flush()

	if len(keys) == 0 {
		return nil
	}

	event := struct {
		PostID     int      `json:"post_id"`
		ObjectKeys []string `json:"object_keys"`
	}{
		PostID:     id,
		ObjectKeys: keys,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.mb.Publish(ctx, data, common.PostDeletedKey, common.MediaExchange)
}

// ToggleLike flips the caller's like on the post and reports the new state
// and like count.
func (s *BlogService) ToggleLike(ctx context.Context, postID, userID int) (bool, int, error) {
	v := common.NewValidator()
	validateInt(v, postID, "id")
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return false, 0, v.ValidationError()
	}

	if ok, err := s.m.postExists(ctx, postID); err != nil {
		return false, 0, err
	} else if !ok {
		return false, 0, ErrRecordNotFound
	}

	liked, count, err := s.m.toggleLike(ctx, postID, userID)
	if err != nil {
		return false, 0, err
	}

	// cached listings carry the like counts too
	s.c.Flush()

	return liked, count, nil
}

// ToggleDislike is the symmetric operation on the dislike list.
func (s *BlogService) ToggleDislike(ctx context.Context, postID, userID int) (bool, int, error) {
	v := common.NewValidator()
	validateInt(v, postID, "id")
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return false, 0, v.ValidationError()
	}

	if ok, err := s.m.postExists(ctx, postID); err != nil {
		return false, 0, err
	} else if !ok {
		return false, 0, ErrRecordNotFound
	}

	disliked, count, err := s.m.toggleDislike(ctx, postID, userID)
	if err != nil {
		return false, 0, err
	}

	s.c.Flush()

	return disliked, count, nil
}

// GetLikers lists everyone currently liking the post.
func (s *BlogService) GetLikers(ctx context.Context, postID int) ([]Interaction, error) {
	v := common.NewValidator()
	validateInt(v, postID, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if ok, err := s.m.postExists(ctx, postID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrRecordNotFound
	}

	return s.m.getLikers(ctx, postID)
}

// GetCategories lists every category with its post id back-references.
func (s *BlogService) GetCategories(ctx context.Context) ([]Category, error) {
	if cached, ok := s.c.Get(common.CacheKeyCategories()); ok {
		return cached.([]Category), nil
	}

	categories, err := s.m.getCategories(ctx)
	if err != nil {
		return nil, err
	}

	s.c.Set(common.CacheKeyCategories(), categories)

	return categories, nil
}

// GetCategory resolves a category by title (case-insensitive) with its posts
// expanded to summaries.
func (s *BlogService) GetCategory(ctx context.Context, title string) (*CategoryPosts, error) {
	v := common.NewValidator()
	v.Check(title != "", "title", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	key := common.CacheKeyCategory(strings.ToLower(title))
	if cached, ok := s.c.Get(key); ok {
		return cached.(*CategoryPosts), nil
	}

	category, err := s.m.getCategoryByTitle(ctx, title)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, ErrCategoryNotFound
		default:
			return nil, err
		}
	}

	posts, err := s.m.getPostsByCategory(ctx, category.ID)
	if err != nil {
		return nil, err
	}

	result := &CategoryPosts{Title: category.Title, Posts: posts}
	s.c.Set(key, result)

	return result, nil
}

// CreateCategory adds a category; titles are unique case-insensitively.
func (s *BlogService) CreateCategory(ctx context.Context, title string) (*Category, error) {
	v := common.NewValidator()
	validateCategoryTitle(v, title)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	category, err := s.m.insertCategory(ctx, title)
	if err != nil {
		return nil, err
	}

	s.c.Delete(common.CacheKeyCategories())

	return category, nil
}

// RenameCategory replaces the title of the category currently named title.
// Uniqueness is re-checked by the same index that guards creation.
func (s *BlogService) RenameCategory(ctx context.Context, title, newTitle string) (*CategoryPosts, error) {
	v := common.NewValidator()
	v.Check(title != "", "title", "must be provided")
	validateCategoryTitle(v, newTitle)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	category, err := s.m.getCategoryByTitle(ctx, title)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, ErrCategoryNotFound
		default:
			return nil, err
		}
	}

	if err := s.m.renameCategory(ctx, category.ID, newTitle); err != nil {
		return nil, err
	}

	s.c.Delete(common.CacheKeyCategories())
	s.c.Delete(common.CacheKeyCategory(strings.ToLower(title)))

	posts, err := s.m.getPostsByCategory(ctx, category.ID)
	if err != nil {
		return nil, err
	}

	return &CategoryPosts{Title: newTitle, Posts: posts}, nil
}

// DeleteCategory removes an empty category; ErrCategoryNotEmpty otherwise.
func (s *BlogService) DeleteCategory(ctx context.Context, title string) error {
	v := common.NewValidator()
	v.Check(title != "", "title", "must be provided")
	if !v.Valid() {
		return v.ValidationError()
	}

	category, err := s.m.getCategoryByTitle(ctx, title)
	if err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return ErrCategoryNotFound
		default:
			return err
		}
	}

	if err := s.m.deleteCategory(ctx, category.ID); err != nil {
		return err
	}

	s.c.Delete(common.CacheKeyCategories())
	s.c.Delete(common.CacheKeyCategory(strings.ToLower(title)))

	return nil
}

// GetComments lists the comments under a post; the post must exist.
func (s *BlogService) GetComments(ctx context.Context, postID int) ([]Comment, error) {
	v := common.NewValidator()
	validateInt(v, postID, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if ok, err := s.m.postExists(ctx, postID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrRecordNotFound
	}

	return s.m.getCommentsByPost(ctx, postID)
}

func (s *BlogService) GetComment(ctx context.Context, id int) (*Comment, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getCommentByID(ctx, id)
}

// CreateComment adds a comment under the post.
func (s *BlogService) CreateComment(ctx context.Context, postID, userID int, content string) (*Comment, error) {
	v := common.NewValidator()
	validateInt(v, postID, "id")
	validateInt(v, userID, "user_id")
	validateCommentContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if ok, err := s.m.postExists(ctx, postID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrRecordNotFound
	}

	comment := &Comment{
		PostID:  postID,
		UserID:  userID,
		Content: sanitizeMarkdown(content),
	}

	if err := s.m.insertComment(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

// UpdateComment rewrites a comment's text. Ownership is enforced by the
// caller; the version guards concurrent edits.
func (s *BlogService) UpdateComment(ctx context.Context, comment *Comment) error {
	v := common.NewValidator()
	validateInt(v, comment.ID, "id")
	validateCommentContent(v, comment.Content)
	if !v.Valid() {
		return v.ValidationError()
	}

	comment.Content = sanitizeMarkdown(comment.Content)

	return s.m.updateComment(ctx, comment)
}

func (s *BlogService) DeleteComment(ctx context.Context, id int) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteComment(ctx, id)
}
