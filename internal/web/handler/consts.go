package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the root path within a route group.
	RouterRootPath = ""

	// QueryBackURL is the query parameter carrying the destination a
	// member wanted before being sent to a form.
	QueryBackURL = "back_url"

	// ErrNilDepsFatalLogMsg is used if the app pointer or a required
	// collaborator is nil.
	ErrNilDepsFatalLogMsg = "app or a required handler dependency is nil"
)
