package inference

// 全局推理服务实例
var globalService *Service

// InitGlobalService 初始化全局推理服务
func InitGlobalService(baseURL string) {
	if baseURL == "" {
		return
	}

	globalService = NewService(baseURL)
}

// GetGlobalService 获取全局推理服务实例
func GetGlobalService() *Service {
	return globalService
}

// IsGlobalServiceReady 检查全局服务是否就绪
func IsGlobalServiceReady() bool {
	return globalService != nil && globalService.Ready()
}
