package errors

import "errors"

var ErrUnknownGateway = errors.New("unknown gateway")
var ErrUnsupportedDriver = errors.New("unsupported database driver")
var ErrStoreNotInitialized = errors.New("payment store was not initialized")
var ErrCorruptRecord = errors.New("corrupt payment record")
var ErrUnsupportedSelectionBackend = errors.New("unsupported selection backend")
