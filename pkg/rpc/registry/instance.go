package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewServiceInstance builds a ServiceInstance for name running at endpoint,
// namespaced under namespace (the deployment's model/environment prefix,
// e.g. "/octopus/rpc/apps"). Key is unique per call so re-registering the
// same instance after a restart never collides with a still-expiring lease
// from the previous process.
func NewServiceInstance(namespace, name, endpoint string) *ServiceInstance {
	key := fmt.Sprintf("%s/%s/%d/%s", namespace, name, time.Now().Unix(), uuid.New().String())
	return &ServiceInstance{
		Name:     name,
		Key:      key,
		Endpoint: endpoint,
	}
}

// Validate reports whether the instance has the fields Register requires.
func (s *ServiceInstance) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if s.Endpoint == "" {
		return ErrEmptyEndpoint
	}
	return nil
}

// Prefix returns the coordination-store prefix under which every instance of
// name, within namespace, is stored.
func Prefix(namespace, name string) string {
	return fmt.Sprintf("%s/%s/", namespace, name)
}
