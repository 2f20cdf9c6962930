package authmodel

// Auth endpoint paths, relative to the API base URL.
const (
	RouteLogin    = "/auth/login/"
	RouteRegister = "/auth/register/"
	RouteRefresh  = "/auth/refresh/"
	RouteMe       = "/auth/me/"
)
