// Package artifact 提供生成图像的落盘存储
package artifact

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dee-studio/internal/config"
	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/errors"
	"dee-studio/pkg/metrics"
)

var tracer = otel.Tracer("artifact")

// Store 磁盘制品存储
// 文件一旦写入即不再变更，也不做过期清理（保留策略是已知的运营缺口）
type Store struct {
	dir     string
	baseURL string
}

// NewStore 创建制品存储，目录不存在时创建
func NewStore(cfg *config.ArtifactsConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir %s: %w", cfg.Dir, err)
	}
	return &Store{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Persist 持久化一张生成图像
// 先写完整临时文件再重命名发布，URL 返回时文件必定完整可读
func (s *Store) Persist(ctx context.Context, image []byte, modelPrefix string) (*entity.ImageArtifact, error) {
	ctx, span := tracer.Start(ctx, "artifact.Persist",
		trace.WithAttributes(
			attribute.String("artifact.model_prefix", modelPrefix),
			attribute.Int("artifact.size_bytes", len(image)),
		))
	defer span.End()

	filename := fmt.Sprintf("%s_%s.png", modelPrefix, uuid.New().String())

	tmp, err := os.CreateTemp(s.dir, ".pending-*")
	if err != nil {
		metrics.ArtifactPersistTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, errors.ErrArtifactPersist.WithError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		metrics.ArtifactPersistTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, errors.ErrArtifactPersist.WithError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		metrics.ArtifactPersistTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, errors.ErrArtifactPersist.WithError(err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmpName)
		metrics.ArtifactPersistTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, errors.ErrArtifactPersist.WithError(err)
	}

	metrics.ArtifactPersistTotal.WithLabelValues("ok").Inc()
	metrics.ArtifactBytesWritten.Add(float64(len(image)))

	return &entity.ImageArtifact{
		InlineData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		// 指向生成服务自身的地址，与 UI 的网络来源解耦
		URL:      s.baseURL + "/images/" + filename,
		Filename: filename,
	}, nil
}

// Path 解析制品文件的磁盘路径，拒绝路径穿越
func (s *Store) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", errors.ErrArtifactNotFound.WithDetail("invalid filename")
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", errors.ErrArtifactNotFound.WithError(err)
	}
	return path, nil
}
