package services

import (
	"ispmedia/internal/models"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeLoader 返回可控的快照，记录调用次数
type fakeLoader struct {
	calls    atomic.Int64
	comments atomic.Value // []models.Comment
}

func (l *fakeLoader) load(trackID uint, status models.CommentStatus) ([]models.Comment, error) {
	l.calls.Add(1)
	if v := l.comments.Load(); v != nil {
		return v.([]models.Comment), nil
	}
	return nil, nil
}

// gatedLoader 在指定的第 N 次调用上阻塞，用于模拟慢查询
type gatedLoader struct {
	fakeLoader
	gate    chan struct{}
	blockOn int64
}

func (l *gatedLoader) load(trackID uint, status models.CommentStatus) ([]models.Comment, error) {
	if l.calls.Add(1) == l.blockOn {
		<-l.gate
	}
	if v := l.comments.Load(); v != nil {
		return v.([]models.Comment), nil
	}
	return nil, nil
}

func waitForSnapshot(t *testing.T, ch <-chan []models.Comment) []models.Comment {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestFeedInitialSnapshot(t *testing.T) {
	loader := &fakeLoader{}
	loader.comments.Store([]models.Comment{{ID: 1, Content: "hi"}})
	feed := newCommentFeed(loader.load)
	go feed.worker()

	received := make(chan []models.Comment, 4)
	unsubscribe := feed.Subscribe(1, models.CommentStatusApproved, func(comments []models.Comment) {
		received <- comments
	})
	defer unsubscribe()

	// 订阅后应立即收到一次当前快照
	snapshot := waitForSnapshot(t, received)
	require.Len(t, snapshot, 1)
	require.Equal(t, "hi", snapshot[0].Content)
}

func TestFeedInvalidatePushesNewSnapshot(t *testing.T) {
	loader := &fakeLoader{}
	loader.comments.Store([]models.Comment{})
	feed := newCommentFeed(loader.load)
	go feed.worker()

	received := make(chan []models.Comment, 4)
	unsubscribe := feed.Subscribe(7, models.CommentStatusPending, func(comments []models.Comment) {
		received <- comments
	})
	defer unsubscribe()

	waitForSnapshot(t, received) // 初始快照

	// 数据变化后 Invalidate，订阅者收到新的完整快照
	loader.comments.Store([]models.Comment{{ID: 1}, {ID: 2}})
	feed.Invalidate(7, models.CommentStatusPending)

	snapshot := waitForSnapshot(t, received)
	require.Len(t, snapshot, 2)
}

func TestFeedInvalidateWithoutSubscribersSkipsLoad(t *testing.T) {
	loader := &fakeLoader{}
	feed := newCommentFeed(loader.load)
	go feed.worker()

	feed.Invalidate(42, models.CommentStatusApproved)

	// 等 worker 处理完队列
	time.Sleep(500 * time.Millisecond)
	require.EqualValues(t, 0, loader.calls.Load())
}

func TestFeedUnsubscribeIdempotent(t *testing.T) {
	loader := &fakeLoader{}
	loader.comments.Store([]models.Comment{})
	feed := newCommentFeed(loader.load)
	go feed.worker()

	var callbackCount atomic.Int64
	received := make(chan []models.Comment, 4)
	unsubscribe := feed.Subscribe(1, models.CommentStatusApproved, func(comments []models.Comment) {
		callbackCount.Add(1)
		received <- comments
	})

	waitForSnapshot(t, received)
	require.Equal(t, 1, feed.SubscriberCount(1, models.CommentStatusApproved))

	// 多次取消不 panic
	unsubscribe()
	unsubscribe()
	unsubscribe()
	require.Equal(t, 0, feed.SubscriberCount(1, models.CommentStatusApproved))

	// 取消后不再收到推送
	before := callbackCount.Load()
	feed.Invalidate(1, models.CommentStatusApproved)
	time.Sleep(500 * time.Millisecond)
	require.Equal(t, before, callbackCount.Load())
}

func TestFeedInvalidateDuringRefreshIsNotLost(t *testing.T) {
	loader := &gatedLoader{gate: make(chan struct{}), blockOn: 2}
	loader.comments.Store([]models.Comment{})
	feed := newCommentFeed(loader.load)
	go feed.worker()

	received := make(chan []models.Comment, 8)
	unsubscribe := feed.Subscribe(9, models.CommentStatusApproved, func(c []models.Comment) {
		received <- c
	})
	defer unsubscribe()

	waitForSnapshot(t, received) // 初始快照（第 1 次查询）

	// 这次 Invalidate 触发的刷新（第 2 次查询）卡在 gate 上
	feed.Invalidate(9, models.CommentStatusApproved)
	require.Eventually(t, func() bool {
		return loader.calls.Load() == 2
	}, 3*time.Second, 10*time.Millisecond)

	// 刷新还在查询时发生新写入并再次 Invalidate：
	// 去重不能把它吞掉，否则订阅者永远看不到这条评论
	loader.comments.Store([]models.Comment{{ID: 42}})
	feed.Invalidate(9, models.CommentStatusApproved)
	close(loader.gate)

	for {
		snapshot := waitForSnapshot(t, received)
		if len(snapshot) == 1 && snapshot[0].ID == 42 {
			break
		}
	}
	require.EqualValues(t, 3, loader.calls.Load())
}

func TestFeedUnsubscribeStopsInitialSnapshot(t *testing.T) {
	loader := &gatedLoader{gate: make(chan struct{}), blockOn: 1}
	loader.comments.Store([]models.Comment{{ID: 1}})
	feed := newCommentFeed(loader.load)
	go feed.worker()

	var callbacks atomic.Int64
	unsubscribe := feed.Subscribe(5, models.CommentStatusApproved, func([]models.Comment) {
		callbacks.Add(1)
	})

	// 初始快照还卡在查询里时就取消订阅，取消返回后回调不得再触发
	require.Eventually(t, func() bool {
		return loader.calls.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)
	unsubscribe()
	close(loader.gate)

	time.Sleep(300 * time.Millisecond)
	require.EqualValues(t, 0, callbacks.Load())
}

func TestFeedMultipleSubscribers(t *testing.T) {
	loader := &fakeLoader{}
	loader.comments.Store([]models.Comment{{ID: 1}})
	feed := newCommentFeed(loader.load)
	go feed.worker()

	first := make(chan []models.Comment, 4)
	second := make(chan []models.Comment, 4)
	unsub1 := feed.Subscribe(3, models.CommentStatusApproved, func(c []models.Comment) { first <- c })
	defer unsub1()
	unsub2 := feed.Subscribe(3, models.CommentStatusApproved, func(c []models.Comment) { second <- c })
	defer unsub2()

	waitForSnapshot(t, first)
	waitForSnapshot(t, second)

	loader.comments.Store([]models.Comment{{ID: 1}, {ID: 2}})
	feed.Invalidate(3, models.CommentStatusApproved)

	require.Len(t, waitForSnapshot(t, first), 2)
	require.Len(t, waitForSnapshot(t, second), 2)

	// 同一个维度两个订阅者共享一次查询：刷新只查一次库
	// （初始快照各查一次 + Invalidate 一次 = 3）
	require.EqualValues(t, 3, loader.calls.Load())
}
