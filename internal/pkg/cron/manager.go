package cron

import (
	"Waypoint/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const defaultCleanSpec = "0 */5 * * * *"

type Manager struct {
	engine           *cron.Cron
	cleanSpec        string
	registryCleanJob *job.RegistryCleanJob
}

// NewCronManager spec 使用带秒的六段格式
func NewCronManager(cleanSpec string, registryCleanJob *job.RegistryCleanJob) *Manager {
	if cleanSpec == "" {
		cleanSpec = defaultCleanSpec
	}
	return &Manager{
		engine:           cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DiscardLogger))),
		cleanSpec:        cleanSpec,
		registryCleanJob: registryCleanJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	// 同一实例上一次未结束时跳过
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(s.registryCleanJob)
	if _, err := s.engine.AddJob(s.cleanSpec, wrapped); err != nil {
		return err
	}
	log.Info("Cron 任务已注册", "job", "registry_clean", "spec", s.cleanSpec)
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

// Stop 等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
