package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) routes() http.Handler {
	router := chi.NewRouter()

	router.NotFound(app.notFoundErrorResponse)
	router.MethodNotAllowed(app.methodNotAllowedErrorResponse)

	router.Get("/v1/healthcheck", app.healthCheckHandler)

	// user service
	router.Post("/v1/auth/register", app.registerUserHandler)
	router.Post("/v1/auth/login", app.loginUserHandler)
	router.Get("/v1/auth/get_current_user", app.requireAuthUser(app.getCurrentUserHandler))

	// categories
	router.Get("/v1/categories", app.getCategoriesHandler)
	router.Post("/v1/categories", app.requireAdmin(app.createCategoryHandler))
	router.Get("/v1/categories/{title}", app.getCategoryHandler)
	router.Put("/v1/categories/{title}", app.requireAdmin(app.renameCategoryHandler))
	router.Delete("/v1/categories/{title}", app.requireAdmin(app.deleteCategoryHandler))

	// posts
	router.Get("/v1/posts", app.getPostsHandler)
	router.Post("/v1/posts", app.requireAuthor(app.createPostHandler))
	router.Get("/v1/posts/search", app.searchPostsHandler)
	router.Get("/v1/posts/feed", app.requireAuthUser(app.feedHandler))
	router.Get("/v1/posts/{id}", app.getPostHandler)
	router.Put("/v1/posts/{id}", app.requireAuthor(app.updatePostHandler))
	router.Delete("/v1/posts/{id}", app.requireAuthUser(app.deletePostHandler))
	router.Post("/v1/posts/{id}/like", app.requireAuthUser(app.toggleLikeHandler))
	router.Get("/v1/posts/{id}/like", app.getLikersHandler)
	router.Post("/v1/posts/{id}/dislike", app.requireAuthUser(app.toggleDislikeHandler))

	// comments
	router.Get("/v1/posts/{id}/comments", app.getCommentsHandler)
	router.Post("/v1/posts/{id}/comments", app.requireAuthUser(app.createCommentHandler))
	router.Get("/v1/posts/{id}/comments/{cid}", app.getCommentHandler)
	router.Put("/v1/posts/{id}/comments/{cid}", app.requireAuthUser(app.updateCommentHandler))
	router.Delete("/v1/posts/{id}/comments/{cid}", app.requireAuthUser(app.deleteCommentHandler))

	return app.recoverPanic(app.rateLimit(app.logRequest(app.authenticate(router))))
}
