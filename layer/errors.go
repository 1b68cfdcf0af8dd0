package layer

import "fmt"

func errNotImplemented(typeName, method string) error {
	return fmt.Errorf("layer: %s does not implement %s", typeName, method)
}
