package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePosts(t *testing.T) {
	t.Run("bare array with numeric ids and nested author", func(t *testing.T) {
		body := []byte(`[
			{"id": 42, "community_id": 7, "author": {"id": 3, "username": "ada", "full_name": "Ada Lovelace"},
			 "content": "hello", "tag": "Help", "likes": 5, "liked_by_me": true,
			 "comments_count": 2, "created_at": "2024-05-01T12:30:00Z"}
		]`)

		posts, err := decodePosts(body)
		require.NoError(t, err)
		require.Len(t, posts, 1)

		p := posts[0]
		assert.Equal(t, "42", p.ID)
		assert.Equal(t, "7", p.CommunityID)
		assert.Equal(t, "3", p.AuthorID)
		assert.Equal(t, "Ada Lovelace", p.Author)
		assert.Equal(t, "AL", p.Initials)
		assert.Equal(t, 5, p.Likes)
		assert.True(t, p.LikedByMe)
		assert.Equal(t, 2, p.CommentCount)
		assert.Equal(t, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), p.CreatedAt)
	})

	t.Run("envelope with alternate field names", func(t *testing.T) {
		body := []byte(`{"posts": [
			{"id": "p1", "communityId": "react", "author": "Grace Hopper", "initials": "GH",
			 "text": "alias", "likes": ["u1", "u2", "u3"], "is_liked": false,
			 "comments": [{"id": 1}, {"id": 2}], "created_at": "2024-05-01T12:30:00.123456"}
		], "total": 1}`)

		posts, err := decodePosts(body)
		require.NoError(t, err)
		require.Len(t, posts, 1)

		p := posts[0]
		assert.Equal(t, "react", p.CommunityID)
		assert.Equal(t, "Grace Hopper", p.Author)
		assert.Equal(t, "GH", p.Initials)
		assert.Equal(t, "alias", p.Content)
		assert.Equal(t, 3, p.Likes)
		assert.Equal(t, 2, p.CommentCount)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("data envelope and community object", func(t *testing.T) {
		body := []byte(`{"data": [{"id": 1, "community": {"slug": "go", "name": "Go"}, "likes_count": 9, "time": "2h ago"}]}`)

		posts, err := decodePosts(body)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "go", posts[0].CommunityID)
		assert.Equal(t, 9, posts[0].Likes)
		assert.True(t, posts[0].CreatedAt.IsZero())
	})

	t.Run("empty and null bodies", func(t *testing.T) {
		for _, body := range []string{"", "null", "[]"} {
			posts, err := decodePosts([]byte(body))
			require.NoError(t, err, body)
			assert.Empty(t, posts)
		}
	})

	t.Run("object without a list", func(t *testing.T) {
		_, err := decodePosts([]byte(`{"detail": "nope"}`))
		assert.Error(t, err)
	})
}

func TestDecodeUser(t *testing.T) {
	u, err := decodeUser([]byte(`{"data": {"id": 12, "email": "a@b.c", "username": "ab", "fullName": "A B", "avatarUrl": "http://x/y.png"}}`))
	require.NoError(t, err)
	assert.Equal(t, "12", u.ID)
	assert.Equal(t, "A B", u.FullName)
	assert.Equal(t, "http://x/y.png", u.AvatarURL)

	u, err = decodeUser([]byte(`{"id": "u1", "email": "c@d.e", "username": "cd", "full_name": "C D"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "C D", u.DisplayName())
}

func TestDecodeCommunities(t *testing.T) {
	communities, err := decodeCommunities([]byte(`[
		{"id": 1, "slug": "react", "name": "React", "members_count": 120, "isJoined": true, "tags": ["js"]},
		{"id": "python", "name": "Python", "member_count": 80}
	]`))
	require.NoError(t, err)
	require.Len(t, communities, 2)

	assert.Equal(t, "react", communities[0].ID)
	assert.Equal(t, 120, communities[0].MemberCount)
	assert.True(t, communities[0].IsJoined)
	assert.Equal(t, []string{"js"}, communities[0].Tags)

	assert.Equal(t, "python", communities[1].ID)
	assert.Equal(t, 80, communities[1].MemberCount)
	assert.False(t, communities[1].IsJoined)
}

func TestDecodeComments(t *testing.T) {
	comments, err := decodeComments([]byte(`{"comments": [{"id": 5, "postId": 9, "author": {"username": "bo"}, "content": "nice"}]}`))
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "5", comments[0].ID)
	assert.Equal(t, "9", comments[0].PostID)
	assert.Equal(t, "bo", comments[0].Author)
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc"`, "abc"},
		{`123`, "123"},
		{`1.5`, "1.5"},
		{`null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexString
			require.NoError(t, f.UnmarshalJSON([]byte(tt.in)))
			assert.Equal(t, tt.want, string(f))
		})
	}

	var f flexString
	assert.Error(t, f.UnmarshalJSON([]byte(`{}`)))
}
