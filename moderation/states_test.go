package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	err = db.AutoMigrate(&models.User{}, &models.GroupMembership{},
		&models.Topic{}, &models.Post{}, &models.PostFlag{},
		&models.PostLike{}, &models.PostDislike{}, &models.TopicView{})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func seedTopic(t *testing.T, db *gorm.DB, posts int) *models.Topic {
	t.Helper()
	topic := models.Topic{ForumID: 1, Title: "seeded"}
	require.NoError(t, db.Create(&topic).Error)
	for i := 0; i < posts; i++ {
		post := models.Post{TopicID: topic.ID, UserID: uint(i + 1), Content: "body"}
		require.NoError(t, db.Create(&post).Error)
	}
	return &topic
}

func reloadTopic(t *testing.T, db *gorm.DB, id uint) *models.Topic {
	t.Helper()
	var topic models.Topic
	require.NoError(t, db.First(&topic, id).Error)
	return &topic
}

func TestWithholdReleaseTopic(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	assert.NoError(WithholdTopic(ctx, db, topic.ID))
	assert.True(reloadTopic(t, db, topic.ID).IsWithheldForModeratorReview)

	// withholding twice is a no-op
	assert.NoError(WithholdTopic(ctx, db, topic.ID))

	assert.NoError(ReleaseTopic(ctx, db, topic.ID))
	assert.False(reloadTopic(t, db, topic.ID).IsWithheldForModeratorReview)

	// releasing a topic that is not withheld is an error
	assert.ErrorIs(ReleaseTopic(ctx, db, topic.ID), ErrNotWithheld)
}

func TestWithholdMissingTopic(t *testing.T) {
	db := testDB(t)
	assert.ErrorIs(t, WithholdTopic(context.TODO(), db, 999), ErrNotFound)
}

func TestLockUnlockTopic(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	assert.NoError(LockTopic(ctx, db, topic.ID))
	assert.True(reloadTopic(t, db, topic.ID).IsLockedByModerator)
	assert.ErrorIs(LockTopic(ctx, db, topic.ID), ErrAlreadyLocked)

	assert.NoError(UnlockTopic(ctx, db, topic.ID))
	assert.False(reloadTopic(t, db, topic.ID).IsLockedByModerator)
	assert.ErrorIs(UnlockTopic(ctx, db, topic.ID), ErrNotLocked)
}

func TestCloseAndPinTopic(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	assert.NoError(CloseTopic(ctx, db, topic.ID))
	assert.True(reloadTopic(t, db, topic.ID).IsClosedByAuthor)

	assert.NoError(PinTopic(ctx, db, topic.ID))
	assert.True(reloadTopic(t, db, topic.ID).IsPinned)
	assert.NoError(UnpinTopic(ctx, db, topic.ID))
	assert.False(reloadTopic(t, db, topic.ID).IsPinned)
}

func TestWithholdReleasePost(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	seedTopic(t, db, 1)

	var post models.Post
	require.NoError(t, db.First(&post).Error)

	assert.NoError(WithholdPost(ctx, db, post.ID))
	assert.NoError(WithholdPost(ctx, db, post.ID))
	assert.NoError(ReleasePost(ctx, db, post.ID))
	assert.ErrorIs(ReleasePost(ctx, db, post.ID), ErrNotWithheld)
}

func TestEditTopicOverwritesTitle(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	assert.NoError(EditTopic(ctx, db, topic.ID, "renamed by a moderator"))
	assert.Equal("renamed by a moderator", reloadTopic(t, db, topic.ID).Title)

	assert.ErrorIs(EditTopic(ctx, db, 999, "x"), ErrNotFound)
}

func TestEditPostOverwritesContent(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	var post models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).First(&post).Error)

	assert.NoError(EditPost(ctx, db, post.ID, "redacted"))

	var fresh models.Post
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal("redacted", fresh.Content)

	assert.ErrorIs(EditPost(ctx, db, 999, "x"), ErrNotFound)
}

func TestDeletePostKeepsPopulatedTopic(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 3)

	var post models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).Order("id desc").First(&post).Error)

	topicDeleted, err := DeletePost(ctx, db, post.ID)
	assert.NoError(err)
	assert.False(topicDeleted)

	var remaining int64
	assert.NoError(db.Model(&models.Post{}).Where("topic_id = ?", topic.ID).Count(&remaining).Error)
	assert.Equal(int64(2), remaining)
}

func TestDeleteLastPostCascadesToTopic(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	var post models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).First(&post).Error)

	topicDeleted, err := DeletePost(ctx, db, post.ID)
	assert.NoError(err)
	assert.True(topicDeleted)

	var topics int64
	assert.NoError(db.Model(&models.Topic{}).Where("id = ?", topic.ID).Count(&topics).Error)
	assert.Equal(int64(0), topics)
}

func TestDeleteTopicRemovesPosts(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 4)

	assert.NoError(DeleteTopic(ctx, db, topic.ID))

	var posts int64
	assert.NoError(db.Model(&models.Post{}).Where("topic_id = ?", topic.ID).Count(&posts).Error)
	assert.Equal(int64(0), posts)

	assert.ErrorIs(DeleteTopic(ctx, db, topic.ID), ErrNotFound)
}

func TestDeleteFlags(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	var post models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).First(&post).Error)
	require.NoError(t, db.Create(&models.PostFlag{PostID: post.ID, UserID: 1}).Error)
	require.NoError(t, db.Create(&models.PostFlag{PostID: post.ID, UserID: 2}).Error)

	assert.NoError(DeleteFlags(ctx, db, post.ID))

	var flags int64
	assert.NoError(db.Model(&models.PostFlag{}).Where("post_id = ?", post.ID).Count(&flags).Error)
	assert.Equal(int64(0), flags)
}

func TestTopicAuthorID(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 3)

	// seedTopic numbers authors from 1; the earliest post wins
	author, err := TopicAuthorID(ctx, db, topic.ID)
	assert.NoError(err)
	assert.Equal(uint(1), author)

	_, err = TopicAuthorID(ctx, db, 999)
	assert.ErrorIs(err, ErrNotFound)
}
