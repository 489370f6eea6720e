// Package archive 把结算会话分发到各持久化/上传协作方。
// 该路径在引擎之外异步执行：任何失败只记日志，不影响内存中的会话状态。
package archive

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/dbstore"
	"LoaDamageMeter/internal/encounter"
	"LoaDamageMeter/internal/filestore"
	"LoaDamageMeter/internal/uploader"
)

// Sink 组合归档出口：文件归档必选，数据库与上传按配置可选
type Sink struct {
	files *filestore.Store
	db    *dbstore.Store
	up    *uploader.Client
	log   zerolog.Logger
}

// New 创建组合归档出口；db与up可为nil
func New(files *filestore.Store, db *dbstore.Store, up *uploader.Client, log zerolog.Logger) *Sink {
	return &Sink{files: files, db: db, up: up, log: log}
}

// Archive 归档一份结算会话；upload为真时同时上传远端
func (s *Sink) Archive(session *encounter.Session, upload bool) {
	if s.files != nil {
		if path, err := s.files.Save(session); err != nil {
			s.log.Error().Err(err).Msg("failed to save encounter")
		} else {
			s.log.Info().Str("path", path).Msg("saved encounter")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Save(ctx, session); err != nil {
			s.log.Error().Err(err).Msg("failed to archive encounter to database")
		}
	}

	if upload && s.up != nil {
		if _, err := s.up.Upload(ctx, session); err != nil {
			s.log.Error().Err(err).Msg("failed to upload encounter")
		}
	}
}
