package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/trendstalk/trendstalk/internal/blogservice"
	"github.com/trendstalk/trendstalk/internal/common"
)

func (app *application) getCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := app.blogService.GetCategories(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"categories": categories}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getCategoryHandler(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")

	category, err := app.blogService.GetCategory(r.Context(), title)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrCategoryNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"category": category}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type createCategoryRequest struct {
	Title string `json:"title"`
}

func (app *application) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var input createCategoryRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	category, err := app.blogService.CreateCategory(r.Context(), input.Title)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrDuplicateCategory):
			app.failedValidationErrorResponse(w, r, map[string]string{"title": "a category with this title already exists"})
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"category": category}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type renameCategoryRequest struct {
	Title string `json:"title"`
}

func (app *application) renameCategoryHandler(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")

	var input renameCategoryRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	category, err := app.blogService.RenameCategory(r.Context(), title, input.Title)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrCategoryNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, blogservice.ErrDuplicateCategory):
			app.failedValidationErrorResponse(w, r, map[string]string{"title": "a category with this title already exists"})
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"category": category}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")

	err := app.blogService.DeleteCategory(r.Context(), title)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrCategoryNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, blogservice.ErrCategoryNotEmpty):
			app.conflictErrorResponse(w, r, "category still has posts and cannot be deleted")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "category deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}
