package services

import (
	"ispmedia/internal/models"
	"log"
	"sync"
	"time"
)

// feedKey 订阅维度：某曲目下某个审核状态的评论集合
type feedKey struct {
	TrackID uint
	Status  models.CommentStatus
}

// feedSub 单个订阅者。closed 之后回调不再触发，
// deliver 与取消操作共用 mu，保证取消返回即为硬截止。
type feedSub struct {
	mu     sync.Mutex
	closed bool
	fn     func([]models.Comment)
}

func (s *feedSub) deliver(comments []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(comments)
}

// CommentFeed 评论实时订阅服务。
// 每个 (曲目, 状态) 维度只有一个数据源：写路径调用 Invalidate 后，
// 后台 worker 重新查询完整快照并推送给该维度的所有订阅者。
// 回调收到的永远是完整的、排好序的列表，不是增量。
type CommentFeed struct {
	queue   chan feedKey // 待刷新的订阅维度队列
	pending map[feedKey]bool
	subs    map[feedKey]map[uint64]*feedSub
	nextID  uint64
	mu      sync.Mutex

	// 快照加载函数，默认为 ListComments，测试时可替换
	loader func(trackID uint, status models.CommentStatus) ([]models.Comment, error)
}

var (
	commentFeed *CommentFeed
	feedOnce    sync.Once
)

// GetCommentFeed 获取单例订阅服务
func GetCommentFeed() *CommentFeed {
	feedOnce.Do(func() {
		commentFeed = newCommentFeed(ListComments)
		// 启动后台 worker
		go commentFeed.worker()
	})
	return commentFeed
}

func newCommentFeed(loader func(uint, models.CommentStatus) ([]models.Comment, error)) *CommentFeed {
	return &CommentFeed{
		queue:   make(chan feedKey, 1000), // 缓冲队列，防止阻塞写路径
		pending: make(map[feedKey]bool),
		subs:    make(map[feedKey]map[uint64]*feedSub),
		loader:  loader,
	}
}

// Subscribe 订阅某曲目某状态的评论集合变化，注册后立即异步推送一次当前快照。
// 返回的取消函数可以安全地多次调用，返回后回调保证不再被触发。
// 不要在回调内部调用取消函数。
func (f *CommentFeed) Subscribe(trackID uint, status models.CommentStatus, fn func([]models.Comment)) func() {
	key := feedKey{TrackID: trackID, Status: status}
	sub := &feedSub{fn: fn}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[key] == nil {
		f.subs[key] = make(map[uint64]*feedSub)
	}
	f.subs[key][id] = sub
	f.mu.Unlock()

	// 首次快照只发给新订阅者
	go func() {
		comments, err := f.loader(trackID, status)
		if err != nil {
			log.Printf("加载初始评论快照失败 (track=%d status=%s): %v", trackID, status, err)
			return
		}
		sub.deliver(comments)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[key], id)
			if len(f.subs[key]) == 0 {
				delete(f.subs, key)
			}
			f.mu.Unlock()

			// 等待进行中的投递结束，之后 closed 挡住一切后续投递
			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
		})
	}
}

// Invalidate 标记若干订阅维度的数据已变化（异步刷新）。
// 使用去重机制避免短时间内重复查询同一维度。
func (f *CommentFeed) Invalidate(trackID uint, statuses ...models.CommentStatus) {
	for _, status := range statuses {
		key := feedKey{TrackID: trackID, Status: status}

		f.mu.Lock()
		if f.pending[key] {
			// 已在队列中，跳过
			f.mu.Unlock()
			continue
		}
		f.pending[key] = true
		f.mu.Unlock()

		// 非阻塞发送到队列
		select {
		case f.queue <- key:
			// 成功加入队列
		default:
			// 队列满了，移除 pending 标记
			f.mu.Lock()
			delete(f.pending, key)
			f.mu.Unlock()
			log.Printf("评论订阅刷新队列已满，跳过 track=%d status=%s", trackID, status)
		}
	}
}

// worker 后台处理刷新请求
func (f *CommentFeed) worker() {
	// 批量处理：收集一批请求后统一刷新
	batch := make([]feedKey, 0, 50)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case key := <-f.queue:
			batch = append(batch, key)
			if len(batch) >= 50 {
				f.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				f.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

// processBatch 逐个维度重新查询快照并推送
func (f *CommentFeed) processBatch(keys []feedKey) {
	for _, key := range keys {
		// 先清标记再刷新：刷新查询期间发生的新写入会重新入队，
		// 否则这段窗口里的 Invalidate 会被当成重复而丢失
		f.mu.Lock()
		delete(f.pending, key)
		f.mu.Unlock()

		f.refresh(key)
	}
}

// refresh 查询一个维度的完整快照并推送给所有订阅者
func (f *CommentFeed) refresh(key feedKey) {
	f.mu.Lock()
	if len(f.subs[key]) == 0 {
		// 没有订阅者就不查库
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	comments, err := f.loader(key.TrackID, key.Status)
	if err != nil {
		log.Printf("刷新评论快照失败 (track=%d status=%s): %v", key.TrackID, key.Status, err)
		return
	}

	// 拷贝出订阅者列表后在锁外投递，避免订阅者在回调里再操作订阅造成死锁
	f.mu.Lock()
	targets := make([]*feedSub, 0, len(f.subs[key]))
	for _, sub := range f.subs[key] {
		targets = append(targets, sub)
	}
	f.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(comments)
	}
}

// SubscriberCount 当前某维度的订阅者数量（监控用）
func (f *CommentFeed) SubscriberCount(trackID uint, status models.CommentStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[feedKey{TrackID: trackID, Status: status}])
}
