package utils

import (
	"strings"
	"testing"

	"github.com/Luismorlan/postsync/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTempDB(t *testing.T) {
	db, dbName := CreateTempDB(t)
	assert.True(t, strings.HasPrefix(dbName, TestDBPrefix))

	assert.True(t, db.Migrator().HasTable(&model.Post{}))
	assert.True(t, db.Migrator().HasTable(&model.HistoryTransaction{}))

	require.NoError(t, db.Create(&model.Post{Id: 1, UserId: 1, Title: "t", Body: "b"}).Error)
	var post model.Post
	require.NoError(t, db.First(&post, 1).Error)
	assert.False(t, post.Read)
}

func TestGetDBConnection_UnsupportedDriver(t *testing.T) {
	_, err := GetDBConnection("mongo", "whatever")
	assert.Error(t, err)
}
