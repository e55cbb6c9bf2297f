package adapter

import (
	"fmt"
	"sort"
	"sync"

	"PropSync/internal/config"
	"PropSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

var (
	factoryMu       sync.RWMutex
	factoryRegistry = make(map[string]interfaces.Factory)
)

// Register 供赔率源包 init 调用，注册工厂函数
func Register(name string, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("赔率源%s的工厂函数不能为nil", name))
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factoryRegistry[name]; exists {
		logrus.Warnf("赔率源%s已注册，将覆盖原有实现", name)
	}
	factoryRegistry[name] = factory
}

// ListFactories 已注册的赔率源名（升序）
func ListFactories() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factoryRegistry))
	for n := range factoryRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewOddsProvider 按名称创建赔率源实例
func NewOddsProvider(name string, cfg *config.OddsProviderConfig, logger *logrus.Logger) (interfaces.OddsProvider, error) {
	factoryMu.RLock()
	factory, ok := factoryRegistry[name]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("未注册的赔率源: %s（已注册：%v）", name, ListFactories())
	}
	p := factory(cfg, logger)
	if p == nil {
		return nil, fmt.Errorf("赔率源%s工厂函数返回nil", name)
	}
	logger.WithField("provider", p.GetName()).Info("赔率源初始化成功")
	return p, nil
}
