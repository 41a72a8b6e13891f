package deployer

import (
	"errors"
	"fmt"
)

// ErrDeploymentConflict signals that an app with the derived deployment id
// already occupies the cluster. Redeploying requires an undeploy first.
var ErrDeploymentConflict = errors.New("deployment already exists")

func conflictError(appID string) error {
	return fmt.Errorf("app %s: %w", appID, ErrDeploymentConflict)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrDeploymentConflict)
}
