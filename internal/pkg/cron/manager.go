package cron

import (
	"Mallchat/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const (
	sensitiveWordSpec = "0 */5 * * * *"
	wxTokenSpec       = "0 */30 * * * *"
)

type Manager struct {
	engine           *cron.Cron
	sensitiveWordJob *job.SensitiveWordJob
	wxTokenJob       *job.WxTokenJob
}

func NewCronManager(sensitiveWordJob *job.SensitiveWordJob, wxTokenJob *job.WxTokenJob) *Manager {
	return &Manager{
		engine:           cron.New(cron.WithSeconds()),
		sensitiveWordJob: sensitiveWordJob,
		wxTokenJob:       wxTokenJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(sensitiveWordSpec, s.sensitiveWordJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob(wxTokenSpec, s.wxTokenJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
