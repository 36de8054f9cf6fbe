// Package auth provides authentication middleware for the web application.
//
// The middleware handles session validation, member authentication checks,
// and automatic redirection for unauthenticated requests. It also adds
// the current member to the request context for use in handlers and
// templates.
//
// The middleware performs the following tasks:
//   - Validates the identity session and redirects to login if invalid
//   - Preserves the requested destination as the login back_url
//   - Adds current member information to fiber.Locals for template access
//   - Allows public access to login, logout, OIDC and health endpoints
//   - Keeps members with expired passwords on the change password page
//
// Usage:
//
//	app.Use(authmiddleware.New(deps))
//
// The middleware reads sessions through the identity store carried in
// the handler dependencies and redirects unauthenticated members to the
// login handler path.
package auth
