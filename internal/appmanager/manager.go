// Package appmanager sequences service startup and shutdown from a YAML
// config: RegisterService/StartAll/StopAll/AutoRegisterServices, the same
// shape used for a much larger service set, narrowed here to the services
// this deployment actually runs.
package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"CimplrCorpSaas/api/analysis"
	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/serviceiface"

	"gopkg.in/yaml.v3"
)

// analysisDeps holds the already-constructed collaborators the "analysis"
// service needs. Set once by cmd/main.go before AutoRegisterServices runs,
// since none of these can be expressed as a YAML config primitive.
var analysisDeps analysis.Deps

// SetAnalysisDeps wires the live collaborators the "analysis" entry in
// services.yaml resolves to.
func SetAnalysisDeps(deps analysis.Deps) {
	analysisDeps = deps
}

// reconcilerService is set the same way, for the same reason: a live
// *orchestrator.Reconciler can't round-trip through YAML.
var reconcilerService serviceiface.Service

// SetReconciler registers the cron-driven reconciliation sweep under the
// "reconciler" name.
func SetReconciler(r serviceiface.Service) {
	reconcilerService = r
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"analysis": func(cfg map[string]interface{}) serviceiface.Service {
		return analysis.NewService(cfg, analysisDeps)
	},
	"reconciler": func(cfg map[string]interface{}) serviceiface.Service {
		return reconcilerService
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts every registered service in registration order, which
// AutoRegisterServices has already sorted by services.yaml's start_order.
// The logger is registered first so every later service's Start() can log
// through logger.GlobalLogger.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, service := range am.services {
		fmt.Println("Starting service:", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

// StopAll stops services in reverse start order.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	sort.Slice(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		if constructor, ok := serviceConstructors[svc.Name]; ok {
			service := constructor(svc.Config)
			if service == nil {
				continue
			}
			am.RegisterService(service)
		}
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
