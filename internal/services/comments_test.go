package services

import (
	"fmt"
	"ispmedia/internal/db"
	"ispmedia/internal/models"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试用独立的内存库
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// 单连接串行化，避免内存 sqlite 的并发写锁干扰测试
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db.Migrate(gdb)
	db.DB = gdb
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
	}
	require.NoError(t, db.DB.Create(user).Error)
	return user
}

func createTestTrack(t *testing.T, owner *models.User, title string) *models.Track {
	t.Helper()
	genre := models.Genre{Name: "genre-" + title}
	require.NoError(t, db.DB.Create(&genre).Error)
	track := &models.Track{
		Tid:      title + "-tid",
		UserID:   owner.ID,
		GenreID:  genre.ID,
		Title:    title,
		AudioKey: "audio-key",
		IsPublic: true,
	}
	require.NoError(t, db.DB.Create(track).Error)
	return track
}

func TestSubmitCommentValidation(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	track := createTestTrack(t, owner, "song")

	// 纯空白内容
	_, err := SubmitComment(owner, track.ID, "   ")
	require.ErrorIs(t, err, ErrEmptyContent)

	// 超长内容（501 个字符）
	_, err = SubmitComment(owner, track.ID, strings.Repeat("a", MaxCommentLength+1))
	require.ErrorIs(t, err, ErrContentTooLong)

	// 上限边界（500 个字符）合法
	_, err = SubmitComment(owner, track.ID, strings.Repeat("b", MaxCommentLength))
	require.NoError(t, err)

	// 缺作者
	_, err = SubmitComment(nil, track.ID, "hello")
	require.ErrorIs(t, err, ErrMissingAuthor)

	// 曲目不存在
	_, err = SubmitComment(owner, 99999, "hello")
	require.ErrorIs(t, err, ErrMissingTrack)

	// 校验失败的提交不应产生记录
	var count int64
	db.DB.Model(&models.Comment{}).Count(&count)
	require.EqualValues(t, 1, count) // 只有那条 500 字符的合法评论
}

func TestSubmitCommentCreatesPending(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	track := createTestTrack(t, owner, "t1")

	comment, err := SubmitComment(owner, track.ID, "  Great track!  ")
	require.NoError(t, err)
	require.Equal(t, models.CommentStatusPending, comment.Status)
	require.Equal(t, track.ID, comment.TrackID)
	require.Equal(t, "Great track!", comment.Content) // 首尾空白被去除
	require.Equal(t, "owner", comment.UserDisplayName)
	require.Len(t, comment.Cid, 8)
	require.Nil(t, comment.ModeratedAt)

	var count int64
	db.DB.Model(&models.Comment{}).Where("track_id = ?", track.ID).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestModerateApprove(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	fan := createTestUser(t, "fan")
	track := createTestTrack(t, owner, "t1")

	comment, err := SubmitComment(fan, track.ID, "Great track!")
	require.NoError(t, err)

	moderated, err := ModerateComment(owner, comment.Cid, DecisionApprove)
	require.NoError(t, err)
	require.Equal(t, models.CommentStatusApproved, moderated.Status)
	require.NotNil(t, moderated.ModeratedAt)

	// approved 列表包含该评论，pending 列表不再包含
	approved, err := ListComments(track.ID, models.CommentStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, comment.ID, approved[0].ID)

	pending, err := ListComments(track.ID, models.CommentStatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestModerateReject(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	fan := createTestUser(t, "fan")
	track := createTestTrack(t, owner, "t1")

	comment, err := SubmitComment(fan, track.ID, "spam spam")
	require.NoError(t, err)

	moderated, err := ModerateComment(owner, comment.Cid, DecisionReject)
	require.NoError(t, err)
	require.Equal(t, models.CommentStatusRejected, moderated.Status)
	require.NotNil(t, moderated.ModeratedAt)

	approved, err := ListComments(track.ID, models.CommentStatusApproved)
	require.NoError(t, err)
	require.Empty(t, approved)
}

func TestModerateTransitionGuard(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	fan := createTestUser(t, "fan")
	track := createTestTrack(t, owner, "t1")

	comment, err := SubmitComment(fan, track.ID, "race me")
	require.NoError(t, err)

	// 第一次审核成功
	_, err = ModerateComment(owner, comment.Cid, DecisionApprove)
	require.NoError(t, err)

	// 终态不可再迁移：无论同向还是反向都被拒绝
	_, err = ModerateComment(owner, comment.Cid, DecisionApprove)
	require.ErrorIs(t, err, ErrAlreadyModerated)
	_, err = ModerateComment(owner, comment.Cid, DecisionReject)
	require.ErrorIs(t, err, ErrAlreadyModerated)

	// 状态保持第一次的结果
	var final models.Comment
	require.NoError(t, db.DB.First(&final, comment.ID).Error)
	require.Equal(t, models.CommentStatusApproved, final.Status)
}

func TestModerateConcurrentDecisions(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	fan := createTestUser(t, "fan")
	track := createTestTrack(t, owner, "t1")

	comment, err := SubmitComment(fan, track.ID, "contested")
	require.NoError(t, err)

	// 并发的 approve 和 reject：恰好一个成功，另一个拿到 ErrAlreadyModerated。
	// 胜者是不确定的，这里只断言互斥性，不断言谁赢。
	results := make(chan error, 2)
	go func() {
		_, err := ModerateComment(owner, comment.Cid, DecisionApprove)
		results <- err
	}()
	go func() {
		_, err := ModerateComment(owner, comment.Cid, DecisionReject)
		results <- err
	}()

	var okCount, conflictCount int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			okCount++
		} else {
			require.ErrorIs(t, err, ErrAlreadyModerated)
			conflictCount++
		}
	}
	require.Equal(t, 1, okCount)
	require.Equal(t, 1, conflictCount)

	var final models.Comment
	require.NoError(t, db.DB.First(&final, comment.ID).Error)
	require.Contains(t, []models.CommentStatus{
		models.CommentStatusApproved,
		models.CommentStatusRejected,
	}, final.Status)
	require.NotNil(t, final.ModeratedAt)
}

func TestModerateAuthorization(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	fan := createTestUser(t, "fan")
	stranger := createTestUser(t, "stranger")
	track := createTestTrack(t, owner, "t1")

	comment, err := SubmitComment(fan, track.ID, "hello")
	require.NoError(t, err)

	// 非曲目作者不能审核
	_, err = ModerateComment(stranger, comment.Cid, DecisionApprove)
	require.ErrorIs(t, err, ErrNotTrackOwner)

	// 评论作者自己也不行
	_, err = ModerateComment(fan, comment.Cid, DecisionApprove)
	require.ErrorIs(t, err, ErrNotTrackOwner)

	// 管理员可以
	admin := createTestUser(t, "boss")
	require.NoError(t, db.DB.Model(admin).Update("role", "admin").Error)
	admin.Role = "admin"
	_, err = ModerateComment(admin, comment.Cid, DecisionApprove)
	require.NoError(t, err)
}

func TestModerateBadInput(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")

	_, err := ModerateComment(owner, "nope1234", DecisionApprove)
	require.ErrorIs(t, err, ErrCommentNotFound)

	_, err = ModerateComment(owner, "nope1234", Decision("purge"))
	require.ErrorIs(t, err, ErrBadDecision)
}

func TestListCommentsOrderAndFilter(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	track := createTestTrack(t, owner, "t1")
	other := createTestTrack(t, owner, "t2")

	// 三条评论，时间递增
	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"first", "second", "third"} {
		comment := models.Comment{
			Cid:             fmt.Sprintf("cid000%d", i),
			TrackID:         track.ID,
			UserID:          owner.ID,
			UserDisplayName: owner.Username,
			Content:         text,
			Status:          models.CommentStatusApproved,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.DB.Create(&comment).Error)
	}
	// 干扰项：同曲目其他状态 + 其他曲目
	require.NoError(t, db.DB.Create(&models.Comment{
		Cid: "cidp0000", TrackID: track.ID, UserID: owner.ID,
		UserDisplayName: owner.Username, Content: "pending one",
		Status: models.CommentStatusPending,
	}).Error)
	require.NoError(t, db.DB.Create(&models.Comment{
		Cid: "cidr0000", TrackID: track.ID, UserID: owner.ID,
		UserDisplayName: owner.Username, Content: "rejected one",
		Status: models.CommentStatusRejected,
	}).Error)
	require.NoError(t, db.DB.Create(&models.Comment{
		Cid: "cidx0000", TrackID: other.ID, UserID: owner.ID,
		UserDisplayName: owner.Username, Content: "other track",
		Status: models.CommentStatusApproved,
	}).Error)

	approved, err := ListComments(track.ID, models.CommentStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 3)
	// 最新在前
	require.Equal(t, "third", approved[0].Content)
	require.Equal(t, "second", approved[1].Content)
	require.Equal(t, "first", approved[2].Content)
	// approved 列表里绝不出现其他状态
	for _, com := range approved {
		require.Equal(t, models.CommentStatusApproved, com.Status)
	}

	_, err = ListComments(0, models.CommentStatusApproved)
	require.ErrorIs(t, err, ErrMissingTrack)

	_, err = ListComments(track.ID, models.CommentStatus("weird"))
	require.Error(t, err)
}

func TestCountComments(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	fan := createTestUser(t, "fan")
	track := createTestTrack(t, owner, "t1")

	first, err := SubmitComment(fan, track.ID, "one")
	require.NoError(t, err)
	_, err = SubmitComment(fan, track.ID, "two")
	require.NoError(t, err)

	require.EqualValues(t, 2, CountComments(track.ID, models.CommentStatusPending))
	require.EqualValues(t, 0, CountComments(track.ID, models.CommentStatusApproved))

	_, err = ModerateComment(owner, first.Cid, DecisionApprove)
	require.NoError(t, err)

	require.EqualValues(t, 1, CountComments(track.ID, models.CommentStatusPending))
	require.EqualValues(t, 1, CountComments(track.ID, models.CommentStatusApproved))
}
