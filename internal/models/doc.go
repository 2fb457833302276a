// Package models defines the canonical records the StudyFlow client works with.
//
// API responses come in several shapes (numeric or string ids, nested or flat authors, envelopes or bare arrays).
// The services package normalizes them into these types so callers never handle optional fields:
//   - [User] : the signed-in account and profile
//   - [Post] : a community feed entry
//   - [Comment] : a reply to a post
//   - [Community] : a topic group that owns a feed
//
// Requests that create or modify records use the *Input types.
package models
