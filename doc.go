// Package identity provides account registration, email verification,
// password based sessions with refresh token rotation, and team scoped
// authorization for multi tenant applications.
//
// The package is organized around a RepositoryManager backed by bun,
// command style handlers for each account and team operation, an
// Auther that issues and validates JWT session tokens, and router
// middleware that guards team scoped routes by membership role.
package identity
