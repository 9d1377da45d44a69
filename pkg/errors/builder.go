package errors

import (
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/grpc/codes"
)

// serviceRegistry tracks registered service codes to prevent conflicts.
var (
	serviceRegistry = make(map[int]string)
	serviceMu       sync.RWMutex
)

// RegisterService binds a service code to a name.
// Registering the same pair twice is a no-op, a different name panics.
//
//	func init() {
//	    errors.RegisterService(errors.ServiceTree, "tree-app")
//	}
func RegisterService(code int, name string) {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if existing, ok := serviceRegistry[code]; ok {
		if existing != name {
			panic(fmt.Sprintf("service code %d already registered by '%s', cannot register for '%s'", code, existing, name))
		}
		return
	}
	serviceRegistry[code] = name
}

// GetServiceName returns the registered name for a service code.
func GetServiceName(code int) (string, bool) {
	serviceMu.RLock()
	defer serviceMu.RUnlock()
	name, ok := serviceRegistry[code]
	return name, ok
}

// GetAllServices returns all registered services.
func GetAllServices() map[int]string {
	serviceMu.RLock()
	defer serviceMu.RUnlock()

	result := make(map[int]string, len(serviceRegistry))
	for k, v := range serviceRegistry {
		result[k] = v
	}
	return result
}

// ErrnoBuilder assembles and registers an Errno.
//
//	var ErrNodeNotFound = errors.NewBuilder(errors.ServiceTree, errors.CategoryResource, 1).
//	    HTTP(http.StatusNotFound).
//	    GRPC(codes.NotFound).
//	    Message("Tree node not found", "节点不存在").
//	    MustBuild()
type ErrnoBuilder struct {
	service   int
	category  int
	sequence  int
	http      int
	grpc      codes.Code
	messageEN string
	messageZH string
}

// NewBuilder starts a builder for MakeCode(service, category, sequence).
// HTTP and gRPC status default to 500 / Internal.
func NewBuilder(service, category, sequence int) *ErrnoBuilder {
	return &ErrnoBuilder{
		service:  service,
		category: category,
		sequence: sequence,
		http:     http.StatusInternalServerError,
		grpc:     codes.Internal,
	}
}

// HTTP sets the HTTP status code.
func (b *ErrnoBuilder) HTTP(status int) *ErrnoBuilder {
	b.http = status
	return b
}

// GRPC sets the gRPC status code.
func (b *ErrnoBuilder) GRPC(code codes.Code) *ErrnoBuilder {
	b.grpc = code
	return b
}

// Message sets both English and Chinese messages.
func (b *ErrnoBuilder) Message(en, zh string) *ErrnoBuilder {
	b.messageEN = en
	b.messageZH = zh
	return b
}

// Build registers the Errno. It fails on a missing message or a taken code.
func (b *ErrnoBuilder) Build() (*Errno, error) {
	if b.messageEN == "" {
		return nil, fmt.Errorf("English message is required")
	}

	e := &Errno{
		Code:      MakeCode(b.service, b.category, b.sequence),
		HTTP:      b.http,
		GRPCCode:  b.grpc,
		MessageEN: b.messageEN,
		MessageZH: b.messageZH,
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		return nil, fmt.Errorf("errno code %d already registered: %s", e.Code, existing.MessageEN)
	}
	errnoRegistry[e.Code] = e

	return e, nil
}

// MustBuild is Build for package-level vars.
func (b *ErrnoBuilder) MustBuild() *Errno {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// NewRequestError creates a builder for request/validation errors (HTTP 400).
func NewRequestError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryRequest, sequence).
		HTTP(http.StatusBadRequest).
		GRPC(codes.InvalidArgument)
}

// NewNotFoundError creates a builder for resource not found errors (HTTP 404).
func NewNotFoundError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryResource, sequence).
		HTTP(http.StatusNotFound).
		GRPC(codes.NotFound)
}

// NewConflictError creates a builder for conflict errors (HTTP 409).
func NewConflictError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryConflict, sequence).
		HTTP(http.StatusConflict).
		GRPC(codes.AlreadyExists)
}

// NewInternalError creates a builder for internal errors (HTTP 500).
func NewInternalError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryInternal, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}

// NewDatabaseError creates a builder for database errors (HTTP 500).
func NewDatabaseError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryDatabase, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}

// NewConfigError creates a builder for configuration errors (HTTP 500).
func NewConfigError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryConfig, sequence).
		HTTP(http.StatusInternalServerError).
		GRPC(codes.Internal)
}
