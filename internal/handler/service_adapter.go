package handler

import (
	"github.com/hitoshi/resumekit/internal/auth"
	"github.com/hitoshi/resumekit/internal/catalog"
	"github.com/hitoshi/resumekit/internal/resume"
	"github.com/hitoshi/resumekit/internal/user"
)

// ドメインサービスはハンドラーのインターフェースをそのまま満たすため、アダプタを介さずに注入する。
var (
	_ AuthServiceInterface     = (*auth.Service)(nil)
	_ UserServiceInterface     = (*user.Service)(nil)
	_ ResumeServiceInterface   = (*resume.Service)(nil)
	_ TemplateServiceInterface = (*catalog.Service)(nil)
)
