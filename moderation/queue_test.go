package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rookery-social/rookery/models"
)

func TestQueueAfterFlaggedPostDeleted(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 2)

	var post models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).Order("id desc").First(&post).Error)
	require.NoError(t, db.Create(&models.PostFlag{PostID: post.ID, UserID: 9}).Error)

	_, err := DeletePost(ctx, db, post.ID)
	require.NoError(t, err)

	// the flag went with the post; the queue stays serviceable
	queue, err := Queue(ctx, db)
	assert.NoError(err)
	assert.Empty(queue.Flags)

	var flags int64
	assert.NoError(db.Model(&models.PostFlag{}).Where("post_id = ?", post.ID).Count(&flags).Error)
	assert.Equal(int64(0), flags)
}

func TestQueueSkipsOrphanedFlag(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 1)

	var post models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).First(&post).Error)
	require.NoError(t, db.Create(&models.PostFlag{PostID: post.ID, UserID: 9}).Error)
	// a flag row left behind by older data must not break the queue
	require.NoError(t, db.Create(&models.PostFlag{PostID: 9999, UserID: 9}).Error)

	queue, err := Queue(ctx, db)
	assert.NoError(err)
	if assert.Len(queue.Flags, 1) {
		assert.Equal(post.ID, queue.Flags[0].PostID)
	}
}

func TestQueueListsWithheldContent(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	visible := seedTopic(t, db, 1)
	hidden := seedTopic(t, db, 1)
	require.NoError(t, db.Model(&models.Topic{}).Where("id = ?", hidden.ID).
		Update("is_withheld_for_moderator_review", true).Error)

	queue, err := Queue(ctx, db)
	assert.NoError(err)
	if assert.Len(queue.Topics, 1) {
		assert.Equal(hidden.ID, queue.Topics[0].ID)
	}
	for _, topic := range queue.Topics {
		assert.NotEqual(visible.ID, topic.ID)
	}
}

func TestDeleteTopicClearsReactions(t *testing.T) {
	assert := assert.New(t)
	db := testDB(t)
	ctx := context.TODO()
	topic := seedTopic(t, db, 2)

	var posts []models.Post
	require.NoError(t, db.Where("topic_id = ?", topic.ID).Find(&posts).Error)
	for _, p := range posts {
		require.NoError(t, db.Create(&models.PostLike{PostID: p.ID, UserID: 9}).Error)
		require.NoError(t, db.Create(&models.PostFlag{PostID: p.ID, UserID: 9}).Error)
	}
	require.NoError(t, db.Create(&models.TopicView{TopicID: topic.ID, UserID: 9}).Error)

	assert.NoError(DeleteTopic(ctx, db, topic.ID))

	var likes, flags, views int64
	assert.NoError(db.Model(&models.PostLike{}).Count(&likes).Error)
	assert.NoError(db.Model(&models.PostFlag{}).Count(&flags).Error)
	assert.NoError(db.Model(&models.TopicView{}).Count(&views).Error)
	assert.Equal(int64(0), likes)
	assert.Equal(int64(0), flags)
	assert.Equal(int64(0), views)
}
