package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	friends := FriendHandler{
		Requests:   deps.FriendRequests,
		Lists:      deps.FriendLists,
		Reconciler: deps.Reconciler,
		Profiles:   deps.Profiles,
	}
	posts := PostHandler{Posts: deps.Posts, Ingestor: deps.PostIngestor}
	moderation := ModerationHandler{Moderation: deps.Moderation}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/password-reset", auth.RequestPasswordReset)
	mux.HandleFunc("/api/v1/friends", friends.List)
	mux.HandleFunc("/api/v1/friends/requests", friends.ListRequests)
	mux.HandleFunc("/api/v1/friends/invite", friends.Invite)
	mux.HandleFunc("/api/v1/friends/respond", friends.Respond)
	mux.HandleFunc("/api/v1/friends/sync", friends.Sync)
	mux.HandleFunc("/api/v1/posts", posts.Create)
	mux.HandleFunc("/api/v1/posts/feed", posts.Feed)
	mux.HandleFunc("/api/v1/moderation/reports", moderation.Report)
	mux.HandleFunc("/api/v1/moderation/blocks", moderation.Block)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Sessions       SessionManager
	FriendRequests FriendRequestStore
	FriendLists    FriendListStore
	Reconciler     FriendReconciler
	Profiles       UsernameResolver
	Posts          PostStore
	PostIngestor   PostIngestor
	Moderation     ModerationStore
	AuthLimiter    RateLimiter
}
