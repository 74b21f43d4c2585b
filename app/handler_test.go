package main

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trendstalk/trendstalk/internal/userservice"
)

// pngBytes is a minimal payload passed off as image content; the upload
// pipeline only checks the file extension.
var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func postIDFromEnvelope(t *testing.T, env envelope) int {
	post, ok := env["post"].(map[string]any)
	if !ok {
		t.Fatalf("response does not contain a post: %v", env)
	}

	id, ok := post["id"].(float64)
	if !ok {
		t.Fatalf("post has no numeric id: %v", post)
	}

	return int(id)
}

func createTestPost(t *testing.T, ts *testServer, token string, categoryID int, title string, tags string) int {
	status, _, env := ts.postMultipart(t, "/v1/posts", map[string]string{
		"title":       title,
		"content":     "Some long enough content for the post body.",
		"tags":        tags,
		"category_id": fmt.Sprintf("%d", categoryID),
	}, map[string][]byte{"cover.png": pngBytes}, &token)
	assert.Equal(t, http.StatusCreated, status)

	return postIDFromEnvelope(t, env)
}

func TestUserHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	t.Run("register", func(t *testing.T) {
		status, _, env := ts.post(t, "/v1/auth/register", map[string]any{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "Test_1234!",
		}, nil)
		assert.Equal(t, http.StatusCreated, status)

		user := env["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, "reader", user["role"])
	})

	t.Run("register duplicate email", func(t *testing.T) {
		status, _, env := ts.post(t, "/v1/auth/register", map[string]any{
			"username": "alice2",
			"email":    "alice@example.com",
			"password": "Test_1234!",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, envelope{"error": map[string]string{"email": "a user with this email address already exists"}}.JSON(), env.JSON())
	})

	t.Run("register invalid payload", func(t *testing.T) {
		status, _, env := ts.post(t, "/v1/auth/register", map[string]any{
			"username": "bob",
			"email":    "not-an-email",
			"password": "Test_1234!",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, envelope{"error": map[string]string{"email": "must be a valid email address"}}.JSON(), env.JSON())
	})

	t.Run("login", func(t *testing.T) {
		status, _, env := ts.post(t, "/v1/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "Test_1234!",
		}, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.NotEmpty(t, env["token"])
	})

	t.Run("login failures are indistinguishable", func(t *testing.T) {
		wrongPasswordStatus, _, wrongPasswordBody := ts.post(t, "/v1/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "Wrong_1234!",
		}, nil)

		unknownEmailStatus, _, unknownEmailBody := ts.post(t, "/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "Test_1234!",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, wrongPasswordStatus)
		assert.Equal(t, http.StatusUnauthorized, unknownEmailStatus)
		assert.JSONEq(t, wrongPasswordBody.JSON(), unknownEmailBody.JSON())
	})

	t.Run("get current user", func(t *testing.T) {
		_, _, env := ts.post(t, "/v1/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "Test_1234!",
		}, nil)
		token := env["token"].(string)

		status, _, env := ts.get(t, "/v1/auth/get_current_user", &token)
		assert.Equal(t, http.StatusOK, status)

		user := env["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, "alice@example.com", user["email"])
	})

	t.Run("get current user without token", func(t *testing.T) {
		status, _, _ := ts.get(t, "/v1/auth/get_current_user", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestCategoryHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	adminToken := registerAndLogin(t, app, "admin", "admin@example.com", userservice.RoleAdmin)
	bloggerToken := registerAndLogin(t, app, "blogger", "blogger@example.com", userservice.RoleBlogger)

	t.Run("create requires admin", func(t *testing.T) {
		status, _, _ := ts.post(t, "/v1/categories", map[string]any{"title": "Tech"}, &bloggerToken)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("create", func(t *testing.T) {
		status, _, env := ts.post(t, "/v1/categories", map[string]any{"title": "Tech"}, &adminToken)
		assert.Equal(t, http.StatusCreated, status)

		category := env["category"].(map[string]any)
		assert.Equal(t, "Tech", category["title"])
	})

	t.Run("create duplicate", func(t *testing.T) {
		status, _, _ := ts.post(t, "/v1/categories", map[string]any{"title": "tech"}, &adminToken)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("list", func(t *testing.T) {
		status, _, env := ts.get(t, "/v1/categories", nil)
		assert.Equal(t, http.StatusOK, status)

		categories := env["categories"].([]any)
		assert.Len(t, categories, 1)
	})

	t.Run("delete non-empty conflicts", func(t *testing.T) {
		category, err := app.blogService.GetCategories(context.Background())
		assert.NoError(t, err)

		postID := createTestPost(t, ts, bloggerToken, category[0].ID, "A post about Go", "go,programming")

		status, _, _ := ts.delete(t, "/v1/categories/Tech", &adminToken)
		assert.Equal(t, http.StatusBadRequest, status)

		// once the category is empty the delete goes through
		status, _, _ = ts.delete(t, fmt.Sprintf("/v1/posts/%d", postID), &bloggerToken)
		assert.Equal(t, http.StatusOK, status)

		status, _, _ = ts.delete(t, "/v1/categories/Tech", &adminToken)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("rename missing category", func(t *testing.T) {
		status, _, _ := ts.put(t, "/v1/categories/DoesNotExist", &adminToken, map[string]any{"title": "Other"})
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestPostHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	readerToken := registerAndLogin(t, app, "reader", "reader@example.com", userservice.RoleReader)
	bloggerToken := registerAndLogin(t, app, "author", "author@example.com", userservice.RoleBlogger)

	category, err := app.blogService.CreateCategory(context.Background(), "Travel")
	assert.NoError(t, err)

	t.Run("reader cannot create a post", func(t *testing.T) {
		status, _, _ := ts.postMultipart(t, "/v1/posts", map[string]string{
			"title":       "Reader post",
			"content":     "Should never land.",
			"tags":        "nope",
			"category_id": fmt.Sprintf("%d", category.ID),
		}, map[string][]byte{"cover.png": pngBytes}, &readerToken)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("rejects non-image uploads", func(t *testing.T) {
		status, _, _ := ts.postMultipart(t, "/v1/posts", map[string]string{
			"title":       "Bad upload",
			"content":     "The attachment is not an image.",
			"tags":        "misc",
			"category_id": fmt.Sprintf("%d", category.ID),
		}, map[string][]byte{"notes.txt": []byte("plain text")}, &bloggerToken)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	postID := createTestPost(t, ts, bloggerToken, category.ID, "Hiking in Norway", "hiking,norway")

	t.Run("repeated views count once", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			status, _, env := ts.get(t, fmt.Sprintf("/v1/posts/%d", postID), &readerToken)
			assert.Equal(t, http.StatusOK, status)

			post := env["post"].(map[string]any)
			assert.Equal(t, float64(1), post["views_count"])
		}
	})

	t.Run("like toggles", func(t *testing.T) {
		status, _, env := ts.post(t, fmt.Sprintf("/v1/posts/%d/like", postID), nil, &readerToken)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, env["liked"])
		assert.Equal(t, float64(1), env["likes_count"])

		status, _, env = ts.post(t, fmt.Sprintf("/v1/posts/%d/like", postID), nil, &readerToken)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, env["liked"])
		assert.Equal(t, float64(0), env["likes_count"])
	})

	t.Run("dislike clears like", func(t *testing.T) {
		status, _, env := ts.post(t, fmt.Sprintf("/v1/posts/%d/like", postID), nil, &readerToken)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, env["liked"])

		status, _, env = ts.post(t, fmt.Sprintf("/v1/posts/%d/dislike", postID), nil, &readerToken)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, env["disliked"])

		status, _, env = ts.get(t, fmt.Sprintf("/v1/posts/%d", postID), nil)
		assert.Equal(t, http.StatusOK, status)

		post := env["post"].(map[string]any)
		assert.Equal(t, float64(0), post["likes_count"])
		assert.Equal(t, float64(1), post["dislikes_count"])
	})

	t.Run("likers listing", func(t *testing.T) {
		ts.post(t, fmt.Sprintf("/v1/posts/%d/like", postID), nil, &bloggerToken)

		status, _, env := ts.get(t, fmt.Sprintf("/v1/posts/%d/like", postID), nil)
		assert.Equal(t, http.StatusOK, status)

		likers := env["likers"].([]any)
		assert.Len(t, likers, 1)
	})

	t.Run("empty patch changes nothing", func(t *testing.T) {
		status, _, env := ts.put(t, fmt.Sprintf("/v1/posts/%d", postID), &bloggerToken, map[string]any{})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "nothing to update", env["message"])

		post := env["post"].(map[string]any)
		assert.Equal(t, "Hiking in Norway", post["title"])
	})

	t.Run("partial update", func(t *testing.T) {
		status, _, env := ts.put(t, fmt.Sprintf("/v1/posts/%d", postID), &bloggerToken, map[string]any{
			"title": "Hiking in Northern Norway",
		})
		assert.Equal(t, http.StatusOK, status)

		post := env["post"].(map[string]any)
		assert.Equal(t, "Hiking in Northern Norway", post["title"])
		assert.Equal(t, "Travel", post["category"])
	})

	t.Run("update by non-owner is refused", func(t *testing.T) {
		otherToken := registerAndLogin(t, app, "rival", "rival@example.com", userservice.RoleBlogger)

		status, _, _ := ts.put(t, fmt.Sprintf("/v1/posts/%d", postID), &otherToken, map[string]any{
			"title": "Hijacked title",
		})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("search", func(t *testing.T) {
		status, _, env := ts.get(t, "/v1/posts/search?query=norway", nil)
		assert.Equal(t, http.StatusOK, status)

		posts := env["posts"].([]any)
		assert.Len(t, posts, 1)
	})

	t.Run("search without matches", func(t *testing.T) {
		status, _, _ := ts.get(t, "/v1/posts/search?query=zzzznotfound", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("listing", func(t *testing.T) {
		status, _, env := ts.get(t, "/v1/posts", nil)
		assert.Equal(t, http.StatusOK, status)

		posts := env["posts"].([]any)
		assert.Len(t, posts, 1)
	})

	t.Run("delete then read", func(t *testing.T) {
		status, _, _ := ts.delete(t, fmt.Sprintf("/v1/posts/%d", postID), &bloggerToken)
		assert.Equal(t, http.StatusOK, status)

		status, _, _ = ts.get(t, fmt.Sprintf("/v1/posts/%d", postID), &readerToken)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestCommentAndFeedHandlers(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	readerToken := registerAndLogin(t, app, "reader", "reader@example.com", userservice.RoleReader)
	bloggerToken := registerAndLogin(t, app, "author", "author@example.com", userservice.RoleBlogger)

	category, err := app.blogService.CreateCategory(context.Background(), "Food")
	assert.NoError(t, err)

	firstPost := createTestPost(t, ts, bloggerToken, category.ID, "Sourdough basics", "baking,bread")
	secondPost := createTestPost(t, ts, bloggerToken, category.ID, "Ramen at home", "cooking,japan")

	freshToken := registerAndLogin(t, app, "newcomer", "newcomer@example.com", userservice.RoleReader)

	t.Run("create comment", func(t *testing.T) {
		status, _, env := ts.post(t, fmt.Sprintf("/v1/posts/%d/comments", firstPost), map[string]any{
			"comment": "Great starter guide!",
		}, &readerToken)
		assert.Equal(t, http.StatusCreated, status)

		comment := env["comment"].(map[string]any)
		assert.Equal(t, "Great starter guide!", comment["comment"])
	})

	t.Run("anonymous cannot comment", func(t *testing.T) {
		status, _, _ := ts.post(t, fmt.Sprintf("/v1/posts/%d/comments", firstPost), map[string]any{
			"comment": "drive-by",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("list and fetch", func(t *testing.T) {
		status, _, env := ts.get(t, fmt.Sprintf("/v1/posts/%d/comments", firstPost), nil)
		assert.Equal(t, http.StatusOK, status)

		comments := env["comments"].([]any)
		assert.Len(t, comments, 1)

		commentID := int(comments[0].(map[string]any)["id"].(float64))

		status, _, env = ts.get(t, fmt.Sprintf("/v1/posts/%d/comments/%d", firstPost, commentID), nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "reader", env["comment"].(map[string]any)["author"])

		// the comment is not reachable under a different post
		status, _, _ = ts.get(t, fmt.Sprintf("/v1/posts/%d/comments/%d", secondPost, commentID), nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("only the author edits", func(t *testing.T) {
		_, _, env := ts.get(t, fmt.Sprintf("/v1/posts/%d/comments", firstPost), nil)
		comments := env["comments"].([]any)
		commentID := int(comments[0].(map[string]any)["id"].(float64))

		status, _, _ := ts.put(t, fmt.Sprintf("/v1/posts/%d/comments/%d", firstPost, commentID), &bloggerToken, map[string]any{
			"comment": "edited by someone else",
		})
		assert.Equal(t, http.StatusForbidden, status)

		status, _, env = ts.put(t, fmt.Sprintf("/v1/posts/%d/comments/%d", firstPost, commentID), &readerToken, map[string]any{
			"comment": "Great starter guide, updated!",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Great starter guide, updated!", env["comment"].(map[string]any)["comment"])
	})

	t.Run("feed falls back to popular posts", func(t *testing.T) {
		// make the second post the most viewed one
		ts.get(t, fmt.Sprintf("/v1/posts/%d", secondPost), &readerToken)
		ts.get(t, fmt.Sprintf("/v1/posts/%d", secondPost), &bloggerToken)
		ts.get(t, fmt.Sprintf("/v1/posts/%d", firstPost), &readerToken)

		status, _, env := ts.get(t, "/v1/posts/feed", &freshToken)
		assert.Equal(t, http.StatusOK, status)

		posts := env["posts"].([]any)
		assert.Len(t, posts, 2)
		assert.Equal(t, float64(secondPost), posts[0].(map[string]any)["id"])
	})

	t.Run("feed follows interacted tags", func(t *testing.T) {
		// liking the first post makes its tags the feed seed
		ts.post(t, fmt.Sprintf("/v1/posts/%d/like", firstPost), nil, &freshToken)

		status, _, env := ts.get(t, "/v1/posts/feed", &freshToken)
		assert.Equal(t, http.StatusOK, status)

		posts := env["posts"].([]any)
		assert.Len(t, posts, 1)
		assert.Equal(t, float64(firstPost), posts[0].(map[string]any)["id"])
	})

	t.Run("admin removes a comment", func(t *testing.T) {
		adminToken := registerAndLogin(t, app, "moderator", "moderator@example.com", userservice.RoleAdmin)

		_, _, env := ts.get(t, fmt.Sprintf("/v1/posts/%d/comments", firstPost), nil)
		comments := env["comments"].([]any)
		commentID := int(comments[0].(map[string]any)["id"].(float64))

		status, _, _ := ts.delete(t, fmt.Sprintf("/v1/posts/%d/comments/%d", firstPost, commentID), &adminToken)
		assert.Equal(t, http.StatusOK, status)

		status, _, env = ts.get(t, fmt.Sprintf("/v1/posts/%d/comments", firstPost), nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, env["comments"].([]any), 0)
	})
}
