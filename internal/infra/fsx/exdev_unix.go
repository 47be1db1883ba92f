//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别裸 errno 以及 os.LinkError 包装后的 EXDEV（errors.Is 会逐层 Unwrap）。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
