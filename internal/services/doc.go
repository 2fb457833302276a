// Package services wraps the StudyFlow REST API.
//
// [Client] is the shared request pipeline: JSON bodies, cookie credentials and
// transparent session renewal on 401. The typed services ([AuthService],
// [PostService], [CommunityService], [CommentService]) sit on top of it and
// normalize the API's loosely shaped responses into [models] records.
package services
