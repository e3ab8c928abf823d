// Package metrics 管家模式和生成调用的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "instagram_butler"

// Collector 指标集合
type Collector struct {
	Actions     *prometheus.CounterVec
	Generations *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Pending     prometheus.Gauge
	Running     prometheus.Gauge
}

// New 创建并注册指标，reg 为 nil 时只创建不注册
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Completed automation actions by kind",
			},
			[]string{"kind"},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Comment generation round-trips by outcome",
			},
			[]string{"outcome"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insert_rejections_total",
				Help:      "Comment insertions abandoned by guard",
			},
			[]string{"reason"},
		),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_insertions",
			Help:      "In-flight comment insertions",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "butler_running",
			Help:      "1 while the automation loop is running",
		}),
	}

	if reg != nil {
		reg.MustRegister(c.Actions, c.Generations, c.Rejections, c.Pending, c.Running)
	}
	return c
}

// Action 记录一次完成的动作（like/follow/comment）
func (c *Collector) Action(kind string) {
	if c == nil {
		return
	}
	c.Actions.WithLabelValues(kind).Inc()
}

// Generation 记录一次生成结果（ok/skip/error/off_topic）
func (c *Collector) Generation(outcome string) {
	if c == nil {
		return
	}
	c.Generations.WithLabelValues(outcome).Inc()
}

// Rejection 记录一次被拦截的插入
func (c *Collector) Rejection(reason string) {
	if c == nil {
		return
	}
	c.Rejections.WithLabelValues(reason).Inc()
}

// SetPending 更新进行中的插入数量
func (c *Collector) SetPending(n int) {
	if c == nil {
		return
	}
	c.Pending.Set(float64(n))
}

// SetRunning 更新运行状态
func (c *Collector) SetRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		c.Running.Set(1)
	} else {
		c.Running.Set(0)
	}
}
