package blogservice

import (
	"database/sql"
	"time"

	"github.com/trendstalk/trendstalk/internal/common"
)

type Image struct {
	Caption   string `json:"caption"`
	URL       string `json:"url"`
	ObjectKey string `json:"-"`
}

// PostSummary is the projection used by every listing endpoint: denormalized
// counts plus the resolved author and category names.
type PostSummary struct {
	ID           int       `json:"id"`
	Author       string    `json:"author"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"date"`
	ViewCount    int       `json:"views_count"`
	LikeCount    int       `json:"likes_count"`
	DislikeCount int       `json:"dislikes_count"`
	CommentCount int       `json:"comments_count"`
	Images       []Image   `json:"images"`
}

type Post struct {
	ID           int       `json:"id"`
	UserID       int       `json:"-"`
	Author       string    `json:"author"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CategoryID   int       `json:"category_id"`
	Category     string    `json:"category"`
	Tags         []string  `json:"tags"`
	Images       []Image   `json:"images"`
	CreatedAt    time.Time `json:"date"`
	ViewCount    int       `json:"views_count"`
	LikeCount    int       `json:"likes_count"`
	DislikeCount int       `json:"dislikes_count"`
	CommentCount int       `json:"comments_count"`
	Version      int       `json:"-"`
}

type Category struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	PostIDs []int  `json:"posts"`
}

type CategoryPosts struct {
	Title string        `json:"title"`
	Posts []PostSummary `json:"posts"`
}

type Comment struct {
	ID           int       `json:"id"`
	PostID       int       `json:"post_id"`
	UserID       int       `json:"-"`
	Author       string    `json:"author"`
	Content      string    `json:"comment"`
	LikeCount    int       `json:"likes_count"`
	DislikeCount int       `json:"dislikes_count"`
	CreatedAt    time.Time `json:"date"`
	Version      int       `json:"-"`
}

// Interaction is one like or view entry with the acting user resolved.
type Interaction struct {
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"timestamp"`
}

// Filters narrows and pages the post listing.
type Filters struct {
	Page   int
	Limit  int
	Tags   []string
	Author string
}

func (f *Filters) offset() int {
	return (f.Page - 1) * f.Limit
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m  *BlogModel
	c  *common.Cache
	mb common.MessageProducer
}
