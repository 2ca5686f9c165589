package forum

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/screening"
)

func withParams(c echo.Context, kv ...string) {
	names := make([]string, 0, len(kv)/2)
	values := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func seedBoard(t *testing.T, srv *Server) (*models.Category, *models.Forum) {
	t.Helper()
	cat := models.Category{Name: "General"}
	require.NoError(t, srv.db.Create(&cat).Error)
	f := models.Forum{CategoryID: cat.ID, Name: "Chat"}
	require.NoError(t, srv.db.Create(&f).Error)
	return &cat, &f
}

func itoa(id uint) string { return strconv.Itoa(int(id)) }

func TestCreateTopicAndReply(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	user := signUp(t, srv, "author", "author@example.com")
	cat, f := seedBoard(t, srv)
	token := tokenFor(t, srv, user.ID)

	c, rec := newCtx(srv, http.MethodPost, "/s/categories/1/forums/1/topics",
		`{"title":"hello","content":"first post"}`, token)
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID))
	assert.NoError(srv.handleCreateTopic(c))
	assert.Equal(http.StatusCreated, rec.Code)

	var topic models.Topic
	require.NoError(t, srv.db.Where("forum_id = ?", f.ID).First(&topic).Error)
	assert.Equal("hello", topic.Title)
	assert.False(topic.IsWithheldForModeratorReview)

	c, rec = newCtx(srv, http.MethodPost, "/s/categories/1/forums/1/topics/1",
		`{"content":"a reply"}`, token)
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID), "topicId", itoa(topic.ID))
	assert.NoError(srv.handleReplyToTopic(c))
	assert.Equal(http.StatusCreated, rec.Code)

	var posts int64
	assert.NoError(srv.db.Model(&models.Post{}).Where("topic_id = ?", topic.ID).Count(&posts).Error)
	assert.Equal(int64(2), posts)
}

func TestCreateTopicAnonymousRejected(t *testing.T) {
	srv := testServer(t)
	cat, f := seedBoard(t, srv)

	c, _ := newCtx(srv, http.MethodPost, "/s/categories/1/forums/1/topics",
		`{"title":"hello","content":"first post"}`, "")
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID))
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, srv.handleCreateTopic(c)))
}

func TestReadOnlyForumRejectsNewTopics(t *testing.T) {
	srv := testServer(t)
	user := signUp(t, srv, "author", "author@example.com")
	cat, f := seedBoard(t, srv)
	require.NoError(t, srv.db.Model(f).Update("is_read_only", true).Error)

	c, _ := newCtx(srv, http.MethodPost, "/s/categories/1/forums/1/topics",
		`{"title":"hello","content":"first post"}`, tokenFor(t, srv, user.ID))
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID))
	assert.Equal(t, http.StatusForbidden, httpCode(t, srv.handleCreateTopic(c)))
}

func TestReplyBlockedOnClosedOrLockedTopic(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	user := signUp(t, srv, "author", "author@example.com")
	cat, f := seedBoard(t, srv)

	topic := models.Topic{ForumID: f.ID, Title: "done", IsClosedByAuthor: true}
	require.NoError(t, srv.db.Create(&topic).Error)
	require.NoError(t, srv.db.Create(&models.Post{TopicID: topic.ID, UserID: user.ID, Content: "x"}).Error)

	token := tokenFor(t, srv, user.ID)
	c, _ := newCtx(srv, http.MethodPost, "/reply", `{"content":"late reply"}`, token)
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID), "topicId", itoa(topic.ID))
	assert.Equal(http.StatusForbidden, httpCode(t, srv.handleReplyToTopic(c)))

	require.NoError(t, srv.db.Model(&topic).Updates(map[string]any{
		"is_closed_by_author":    false,
		"is_locked_by_moderator": true,
	}).Error)

	c, _ = newCtx(srv, http.MethodPost, "/reply", `{"content":"late reply"}`, token)
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID), "topicId", itoa(topic.ID))
	assert.Equal(http.StatusForbidden, httpCode(t, srv.handleReplyToTopic(c)))
}

func TestReplyToWithheldTopicNotFound(t *testing.T) {
	srv := testServer(t)
	user := signUp(t, srv, "author", "author@example.com")
	cat, f := seedBoard(t, srv)

	topic := models.Topic{ForumID: f.ID, Title: "hidden", IsWithheldForModeratorReview: true}
	require.NoError(t, srv.db.Create(&topic).Error)

	c, _ := newCtx(srv, http.MethodPost, "/reply", `{"content":"reply"}`, tokenFor(t, srv, user.ID))
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID), "topicId", itoa(topic.ID))
	assert.Equal(t, http.StatusNotFound, httpCode(t, srv.handleReplyToTopic(c)))
}

func TestTopicListingExcludesWithheldAndSortsPinned(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	user := signUp(t, srv, "author", "author@example.com")
	cat, f := seedBoard(t, srv)

	plain := models.Topic{ForumID: f.ID, Title: "plain"}
	require.NoError(t, srv.db.Create(&plain).Error)
	pinned := models.Topic{ForumID: f.ID, Title: "pinned", IsPinned: true}
	require.NoError(t, srv.db.Create(&pinned).Error)
	hidden := models.Topic{ForumID: f.ID, Title: "hidden", IsWithheldForModeratorReview: true}
	require.NoError(t, srv.db.Create(&hidden).Error)
	for _, topic := range []models.Topic{plain, pinned, hidden} {
		require.NoError(t, srv.db.Create(&models.Post{TopicID: topic.ID, UserID: user.ID, Content: "x"}).Error)
	}

	c, rec := newCtx(srv, http.MethodGet, "/topics", "", "")
	withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID))
	assert.NoError(srv.handleGetTopics(c))
	assert.Equal(http.StatusOK, rec.Code)

	var out struct {
		Topics []topicView `json:"Topics"`
	}
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	if assert.Len(out.Topics, 2) {
		assert.Equal("pinned", out.Topics[0].Title)
		assert.Equal("plain", out.Topics[1].Title)
	}
}

func TestGetTopicRecordsView(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	user := signUp(t, srv, "reader", "reader@example.com")
	cat, f := seedBoard(t, srv)
	topic := models.Topic{ForumID: f.ID, Title: "read me"}
	require.NoError(t, srv.db.Create(&topic).Error)
	require.NoError(t, srv.db.Create(&models.Post{TopicID: topic.ID, UserID: user.ID, Content: "x"}).Error)

	for i := 0; i < 2; i++ {
		c, rec := newCtx(srv, http.MethodGet, "/topic", "", tokenFor(t, srv, user.ID))
		withParams(c, "categoryId", itoa(cat.ID), "forumId", itoa(f.ID), "topicId", itoa(topic.ID))
		assert.NoError(srv.handleGetTopic(c))
		assert.Equal(http.StatusOK, rec.Code)
	}

	var views int64
	assert.NoError(srv.db.Model(&models.TopicView{}).Where("topic_id = ?", topic.ID).Count(&views).Error)
	assert.Equal(int64(1), views)
}

func TestLikeDislikeFlagHandlers(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	author := signUp(t, srv, "author", "author@example.com")
	reader := signUp(t, srv, "reader", "reader@example.com")
	_, post := seedThread(t, srv, author.ID)
	token := tokenFor(t, srv, reader.ID)

	c, rec := newCtx(srv, http.MethodPost, "/like", "", token)
	withParams(c, "postId", itoa(post.ID))
	assert.NoError(srv.handleLikePost(c))
	assert.Equal(http.StatusOK, rec.Code)

	var likes int64
	assert.NoError(srv.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Equal(int64(1), likes)

	// second like from the same reader toggles it back off
	c, rec = newCtx(srv, http.MethodPost, "/like", "", token)
	withParams(c, "postId", itoa(post.ID))
	assert.NoError(srv.handleLikePost(c))
	assert.Equal(http.StatusOK, rec.Code)
	assert.NoError(srv.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Equal(int64(0), likes)

	c, rec = newCtx(srv, http.MethodPost, "/flag", "", token)
	withParams(c, "postId", itoa(post.ID))
	assert.NoError(srv.handleFlagPost(c))
	assert.Equal(http.StatusOK, rec.Code)

	c, _ = newCtx(srv, http.MethodPost, "/flag", "", token)
	withParams(c, "postId", itoa(post.ID))
	assert.Equal(http.StatusConflict, httpCode(t, srv.handleFlagPost(c)))
}

func TestUpdatePostOwnership(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	signUp(t, srv, "founder", "founder@example.com")
	author := signUp(t, srv, "author", "author@example.com")
	bystander := signUp(t, srv, "bystander", "bystander@example.com")
	_, post := seedThread(t, srv, author.ID)

	// another member may not edit someone else's post
	c, _ := newCtx(srv, http.MethodPatch, "/post", `{"content":"defaced"}`, tokenFor(t, srv, bystander.ID))
	withParams(c, "postId", itoa(post.ID))
	assert.Equal(http.StatusForbidden, httpCode(t, srv.handleUpdatePost(c)))

	// the author may edit their own
	c, rec := newCtx(srv, http.MethodPatch, "/post", `{"content":"second draft"}`, tokenFor(t, srv, author.ID))
	withParams(c, "postId", itoa(post.ID))
	assert.NoError(srv.handleUpdatePost(c))
	assert.Equal(http.StatusOK, rec.Code)

	var fresh models.Post
	require.NoError(t, srv.db.First(&fresh, post.ID).Error)
	assert.Equal("second draft", fresh.Content)
}

func TestUpdatePostBlockedOnLockedTopic(t *testing.T) {
	srv := testServer(t)
	author := signUp(t, srv, "author", "author@example.com")
	topic, post := seedThread(t, srv, author.ID)
	require.NoError(t, srv.db.Model(topic).Update("is_locked_by_moderator", true).Error)

	c, _ := newCtx(srv, http.MethodPatch, "/post", `{"content":"sneaky edit"}`, tokenFor(t, srv, author.ID))
	withParams(c, "postId", itoa(post.ID))
	assert.Equal(t, http.StatusForbidden, httpCode(t, srv.handleUpdatePost(c)))

	var fresh models.Post
	require.NoError(t, srv.db.First(&fresh, post.ID).Error)
	assert.Equal(t, "first post", fresh.Content)
}

func TestUpdatePostRescreensContent(t *testing.T) {
	assert := assert.New(t)
	hostile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"label":"POSITIVE","score":0.05},{"label":"NEGATIVE","score":0.95}]`)
	}))
	defer hostile.Close()

	screen := screening.NewGateway(nil, nil, nil)
	screen.Sentiment = &screening.SentimentClient{Client: hostile.Client(), Host: hostile.URL}
	srv := testServerWithScreen(t, screen)

	author := signUp(t, srv, "author", "author@example.com")
	_, post := seedThread(t, srv, author.ID)

	c, rec := newCtx(srv, http.MethodPatch, "/post", `{"content":"awful rewrite"}`, tokenFor(t, srv, author.ID))
	withParams(c, "postId", itoa(post.ID))
	assert.NoError(srv.handleUpdatePost(c))
	assert.Equal(http.StatusOK, rec.Code)

	// the edit lands but the scoring verdict withholds it
	var fresh models.Post
	require.NoError(t, srv.db.First(&fresh, post.ID).Error)
	assert.Equal("awful rewrite", fresh.Content)
	assert.True(fresh.IsWithheldForModeratorReview)
}

func TestModeratorEditBypassesOwnership(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	mod := signUp(t, srv, "founder", "founder@example.com")
	author := signUp(t, srv, "author", "author@example.com")
	member := signUp(t, srv, "bystander", "bystander@example.com")
	topic, post := seedThread(t, srv, author.ID)
	token := tokenFor(t, srv, mod.ID)

	// a plain member is turned away from the moderator edit surface
	c, _ := newCtx(srv, http.MethodPatch, "/mod-post", `{"content":"defaced"}`, tokenFor(t, srv, member.ID))
	withParams(c, "postId", itoa(post.ID))
	assert.Equal(http.StatusForbidden, httpCode(t, srv.handleModEditPost(c)))

	c, rec := newCtx(srv, http.MethodPatch, "/mod-post", `{"content":"[removed by staff]"}`, token)
	withParams(c, "postId", itoa(post.ID))
	assert.NoError(srv.handleModEditPost(c))
	assert.Equal(http.StatusOK, rec.Code)

	var freshPost models.Post
	require.NoError(t, srv.db.First(&freshPost, post.ID).Error)
	assert.Equal("[removed by staff]", freshPost.Content)

	c, rec = newCtx(srv, http.MethodPatch, "/mod-topic", `{"title":"retitled"}`, token)
	withParams(c, "topicId", itoa(topic.ID))
	assert.NoError(srv.handleModEditTopic(c))
	assert.Equal(http.StatusOK, rec.Code)

	var freshTopic models.Topic
	require.NoError(t, srv.db.First(&freshTopic, topic.ID).Error)
	assert.Equal("retitled", freshTopic.Title)
}

func TestDeleteLastPostRemovesTopic(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t)
	author := signUp(t, srv, "author", "author@example.com")
	topic, post := seedThread(t, srv, author.ID)

	var f models.Forum
	require.NoError(t, srv.db.First(&f, topic.ForumID).Error)

	c, rec := newCtx(srv, http.MethodDelete, "/post", "", tokenFor(t, srv, author.ID))
	withParams(c, "categoryId", itoa(f.CategoryID), "forumId", itoa(f.ID),
		"topicId", itoa(topic.ID), "postId", itoa(post.ID))
	assert.NoError(srv.handleDeletePost(c))
	assert.Equal(http.StatusOK, rec.Code)

	var topics int64
	assert.NoError(srv.db.Model(&models.Topic{}).Where("id = ?", topic.ID).Count(&topics).Error)
	assert.Equal(int64(0), topics)
}
