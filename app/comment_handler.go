package main

import (
	"errors"
	"net/http"

	"github.com/trendstalk/trendstalk/internal/blogservice"
	"github.com/trendstalk/trendstalk/internal/common"
)

func (app *application) getCommentsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	comments, err := app.blogService.GetComments(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"comments": comments}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

// readPostComment resolves the {cid} comment and checks that it actually
// belongs to the {id} post in the URL.
func (app *application) readPostComment(w http.ResponseWriter, r *http.Request) (*blogservice.Comment, bool) {
	postID, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return nil, false
	}

	commentID, err := app.readIDParam(r, "cid")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return nil, false
	}

	comment, err := app.blogService.GetComment(r.Context(), commentID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return nil, false
	}

	if comment.PostID != postID {
		app.notFoundErrorResponse(w, r)
		return nil, false
	}

	return comment, true
}

func (app *application) getCommentHandler(w http.ResponseWriter, r *http.Request) {
	comment, ok := app.readPostComment(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"comment": comment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type createCommentRequest struct {
	Content string `json:"comment"`
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	var input createCommentRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	comment, err := app.blogService.CreateComment(r.Context(), id, user.ID, input.Content)
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

	err = app.writeJSON(w, http.StatusCreated, envelope{"comment": comment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type updateCommentRequest struct {
	Content string `json:"comment"`
}

func (app *application) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	comment, ok := app.readPostComment(w, r)
	if !ok {
		return
	}

	var input updateCommentRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	// Only the comment's author may edit it.
	if !user.IsOwner(comment.UserID) {
		app.forbiddenErrorResponse(w, r)
		return
	}

	comment.Content = input.Content

	err = app.blogService.UpdateComment(r.Context(), comment)
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

	err = app.writeJSON(w, http.StatusOK, envelope{"comment": comment}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	comment, ok := app.readPostComment(w, r)
	if !ok {
		return
	}

	user := app.getUserContext(r)

	// The author or an admin may remove a comment.
	if !user.CanModify(comment.UserID) {
		app.forbiddenErrorResponse(w, r)
		return
	}

	err := app.blogService.DeleteComment(r.Context(), comment.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "comment deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}
