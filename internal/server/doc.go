// package server is an in-memory stand-in for the StudyFlow REST API.
//
// It implements the endpoints the client consumes (auth, users, posts,
// comments, likes and communities) with JWT session cookies, so the CLI and
// the integration tests can run against a realistic backend. Access cookies
// are short lived and renewed through /auth/refresh, exactly like the real
// service; [Server.ExpireAccessTokens] forces that path on demand.
//
// Nothing is persisted: every [Server] starts from the same seed data.
package server
