package utils

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"field-equipment/config"
)

// ValidateFile проверяет размер, расширение и MIME-тип загружаемого файла.
// maxSizeMB > 0 переопределяет лимит из UploadContexts.
func ValidateFile(fileName string, size int64, file io.ReadSeeker, contextName string, maxSizeMB int64) error {
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return fmt.Errorf("неизвестный контекст загрузки: %s", contextName)
	}

	limit := rules.MaxSizeMB
	if maxSizeMB > 0 {
		limit = maxSizeMB
	}
	if limit > 0 {
		maxSizeBytes := limit * 1024 * 1024
		if size > maxSizeBytes {
			return fmt.Errorf("размер файла (%d KB) превышает лимит в %d MB", size/1024, limit)
		}
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(rules.AllowedExt) > 0 && !slices.Contains(rules.AllowedExt, ext) {
		return fmt.Errorf("недопустимое расширение файла: %s", ext)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("не удалось прочитать файл для определения типа")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("не удалось сбросить указатель файла")
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return fmt.Errorf("недопустимый тип файла: %s", mimeType)
	}

	return nil
}
