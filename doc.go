// Package main provides the entry point for MemberGate, the sign in
// front door of the member area. It runs a web server using the Fiber
// framework that authenticates members against the local database, an
// LDAP directory or an OpenID Connect provider, issues their sessions
// and decides where each member lands after signing in. The application
// uses gorm for data persistence and records every sign in attempt for
// the member's history page.
package main
