package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/trendstalk/trendstalk/internal/blogservice"
	"github.com/trendstalk/trendstalk/internal/common"
	"github.com/trendstalk/trendstalk/internal/mediaservice"
)

const maxUploadSize = 32 << 20

// createPostHandler accepts a multipart form: title, content, tags (comma
// separated), category_id, and one or more image files under "images". The
// images are uploaded to object storage before the post row is written; if
// the write fails the uploaded assets are removed again.
func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(maxUploadSize)
	if err != nil {
		app.badRequestErrorResponse(w, r, errors.New("could not parse multipart form"))
		return
	}

	categoryID, err := strconv.Atoi(r.FormValue("category_id"))
	if err != nil {
		app.badRequestErrorResponse(w, r, errors.New("invalid category_id field"))
		return
	}

	var tags []string
	for _, t := range strings.Split(r.FormValue("tags"), ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}

	files := r.MultipartForm.File["images"]
	uploaded, err := app.mediaService.UploadImages(r.Context(), files)
	if err != nil {
		switch {
		case errors.Is(err, mediaservice.ErrInvalidImage):
			app.badRequestErrorResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	images := make([]blogservice.Image, len(uploaded))
	keys := make([]string, len(uploaded))
	for i, u := range uploaded {
		images[i] = blogservice.Image{Caption: u.Caption, URL: u.URL, ObjectKey: u.ObjectKey}
		keys[i] = u.ObjectKey
	}

	user := app.getUserContext(r)

	req := &blogservice.CreatePostRequest{
		UserID:     user.ID,
		Title:      r.FormValue("title"),
		Content:    r.FormValue("content"),
		Tags:       tags,
		CategoryID: categoryID,
		Images:     images,
	}

	post, err := app.blogService.CreatePost(r.Context(), req)
	if err != nil {
		// the post row never landed, so the uploaded assets are orphans
		app.mediaService.DeleteAssets(r.Context(), keys)

		switch {
		case errors.Is(err, blogservice.ErrCategoryNotFound):
			app.failedValidationErrorResponse(w, r, map[string]string{"category": "this category does not exist"})
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		case errors.Is(err, blogservice.ErrUserForeignKey):
			app.invalidAuthenticationTokenResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"post": post}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	// Anonymous reads are served without recording a view.
	user := app.getUserContext(r)
	viewerID := 0
	if !user.IsAnonymous() {
		viewerID = user.ID
	}

	post, err := app.blogService.GetPost(r.Context(), id, viewerID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"post": post}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getPostsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit, err := app.readPageLimitParams(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	filters := blogservice.Filters{
		Page:   page,
		Limit:  limit,
		Tags:   app.readCSVParam(r, "tags"),
		Author: r.URL.Query().Get("author"),
	}

	posts, err := app.blogService.GetPosts(r.Context(), filters)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"posts": posts}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) searchPostsHandler(w http.ResponseWriter, r *http.Request) {
	query, err := app.readStringParam(r, "query")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	posts, err := app.blogService.SearchPosts(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"posts": posts}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) feedHandler(w http.ResponseWriter, r *http.Request) {
	page, limit, err := app.readPageLimitParams(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	posts, err := app.blogService.Feed(r.Context(), user.ID, page, limit)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"posts": posts}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type updatePostRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	CategoryID int      `json:"category_id"`
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	var input updatePostRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	dbPost, err := app.blogService.GetPostByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if !user.IsOwner(dbPost.UserID) {
		app.forbiddenErrorResponse(w, r)
		return
	}

	req := &blogservice.UpdatePostRequest{
		ID:         id,
		Title:      input.Title,
		Content:    input.Content,
		Tags:       input.Tags,
		CategoryID: input.CategoryID,
	}

	post, changed, err := app.blogService.UpdatePost(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, blogservice.ErrCategoryNotFound):
			app.failedValidationErrorResponse(w, r, map[string]string{"category": "this category does not exist"})
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if !changed {
		err = app.writeJSON(w, http.StatusOK, envelope{"message": "nothing to update", "post": post}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"post": post}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	dbPost, err := app.blogService.GetPostByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	user := app.getUserContext(r)

	// Owners and admins may delete; everyone else is refused.
	if !user.CanModify(dbPost.UserID) {
		app.forbiddenErrorResponse(w, r)
		return
	}

	err = app.blogService.DeletePost(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "post deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	liked, count, err := app.blogService.ToggleLike(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"liked": liked, "likes_count": count}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) toggleDislikeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	disliked, count, err := app.blogService.ToggleDislike(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"disliked": disliked, "dislikes_count": count}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getLikersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	likers, err := app.blogService.GetLikers(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"likers": likers}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}
