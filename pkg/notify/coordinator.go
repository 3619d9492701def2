// Package notify 合并"数据已变更"信号。
//
// Schedule 在防抖窗口内收集待发送的种类，窗口结束时每个种类只发送一次；
// Emit 绕过合并立即发送，用于课程增删、学期切换等需要即时刷新的操作。
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind 变更信号种类
type Kind string

const (
	CourseData     Kind = "course_data"
	AttendanceData Kind = "attendance_data"
	StatisticsData Kind = "statistics_data"
)

// emitOrder 同一窗口内的发送顺序
var emitOrder = []Kind{CourseData, AttendanceData, StatisticsData}

// DefaultDelay 默认防抖窗口
const DefaultDelay = 100 * time.Millisecond

// Listener 信号观察者；在发送协程上同步调用，不应阻塞
type Listener func(kind Kind)

// Coordinator 变更信号协调器
type Coordinator struct {
	mu        sync.Mutex
	delay     time.Duration
	pending   map[Kind]struct{}
	timer     *time.Timer
	gen       uint64
	stopped   bool
	listeners []Listener
	logger    *zap.Logger
}

// NewCoordinator 创建协调器；delay<=0 时使用 DefaultDelay
func NewCoordinator(delay time.Duration, logger *zap.Logger) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		delay:   delay,
		pending: make(map[Kind]struct{}),
		logger:  logger,
	}
}

// Subscribe 注册观察者
func (c *Coordinator) Subscribe(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Schedule 将 kind 加入待发送集合并重新开始防抖计时
func (c *Coordinator) Schedule(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.pending[kind] = struct{}{}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.fire(gen) })
}

// Emit 立即发送 kinds，不参与合并，也不影响防抖窗口中的待发送信号
func (c *Coordinator) Emit(kinds ...Kind) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	for _, k := range kinds {
		c.dispatch(listeners, k)
	}
}

// Flush 立即发送所有待发送信号
func (c *Coordinator) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	kinds := c.drainLocked()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	for _, k := range kinds {
		c.dispatch(listeners, k)
	}
}

// Pending 当前待发送的种类（按发送顺序）
func (c *Coordinator) Pending() []Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Kind, 0, len(c.pending))
	for _, k := range emitOrder {
		if _, ok := c.pending[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Reset 丢弃待发送信号并取消计时（重新加载数据时调用）
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.pending = make(map[Kind]struct{})
}

// Stop 取消计时并停止接受新信号；可重复调用
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.stopped = true
	c.pending = make(map[Kind]struct{})
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	// 计时器触发后又被重新调度：交给新的计时器处理
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	kinds := c.drainLocked()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	for _, k := range kinds {
		c.dispatch(listeners, k)
	}
}

func (c *Coordinator) drainLocked() []Kind {
	kinds := make([]Kind, 0, len(c.pending))
	for _, k := range emitOrder {
		if _, ok := c.pending[k]; ok {
			kinds = append(kinds, k)
		}
	}
	c.pending = make(map[Kind]struct{})
	return kinds
}

func (c *Coordinator) snapshotListenersLocked() []Listener {
	out := make([]Listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}

func (c *Coordinator) dispatch(listeners []Listener, kind Kind) {
	c.logger.Debug("发送数据变更信号", zap.String("kind", string(kind)), zap.Int("listeners", len(listeners)))
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("变更信号观察者异常", zap.String("kind", string(kind)), zap.Any("panic", r))
				}
			}()
			l(kind)
		}()
	}
}
