// Package deployer turns platform-agnostic app deployment requests into
// Kubernetes resources: a service fronting a replicated workload, linked by a
// shared label set. It is a plain API client; there is no controller loop and
// no reconciliation, and partial failures are left for the caller to undeploy.
package deployer

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/kubedeployer/kubedeployer/internal/k8s"
)

const (
	defaultPort  = 8080
	defaultCount = 1
)

var (
	lbWaitInterval = 10 * time.Second
	sleep          = time.Sleep
)

// Deployer deploys apps into a single namespace. Containers and Classifier
// default to the stock implementations when left nil.
type Deployer struct {
	Client     *k8s.Client
	Config     Config
	Containers ContainerFactory
	Classifier StatusClassifier
}

func NewDeployer(client *k8s.Client, config Config) *Deployer {
	return &Deployer{
		Client:     client,
		Config:     config,
		Containers: DefaultContainerFactory{Config: config},
		Classifier: PodStatusClassifier{},
	}
}

func FromKubeConfig(path, namespace string, config Config) (*Deployer, error) {
	client, err := k8s.NewClientFromKubeConfig(path, namespace)
	if err != nil {
		return nil, err
	}
	return NewDeployer(client, config), nil
}

// Deploy creates the service and workload for a request and returns the
// derived deployment id. Deploys are never idempotent: any app already
// occupying the id is a conflict, and a failed deploy is not rolled back.
func (deployer *Deployer) Deploy(ctx context.Context, request AppDeploymentRequest) (string, error) {
	appID := DeploymentID(request)
	log.Debugf("deploying app %s", appID)

	status, err := deployer.Status(ctx, appID)
	if err != nil {
		return "", fmt.Errorf("failed to check status for app %s: %w", appID, err)
	}
	if status.State() != StateUnknown {
		return "", conflictError(appID)
	}

	port, err := externalPort(request)
	if err != nil {
		return "", err
	}

	labels := DeploymentLabels(appID, request)

	service := buildService(appID, labels, port, deployer.Config.CreateLoadBalancer)
	if _, err := deployer.Client.CreateService(ctx, service); err != nil {
		if kerrors.IsAlreadyExists(err) {
			return "", conflictError(appID)
		}
		return "", fmt.Errorf("failed to create service for app %s: %w", appID, err)
	}

	// resolved only once the service exists: a malformed count aborts the
	// deploy and leaves the service behind
	count, err := instanceCount(request)
	if err != nil {
		return "", err
	}

	podSpec, err := buildPodSpec(deployer.Config, deployer.factory(), appID, request, port)
	if err != nil {
		return "", err
	}

	workload := buildDeployment(appID, labels, int32(count), podSpec)
	if _, err := deployer.Client.CreateDeployment(ctx, workload); err != nil {
		if kerrors.IsAlreadyExists(err) {
			return "", conflictError(appID)
		}
		return "", fmt.Errorf("failed to create deployment for app %s: %w", appID, err)
	}

	return appID, nil
}

// Status rebuilds the app's state from the pods carrying its app-id label.
// It is safe to call for ids that were never deployed.
func (deployer *Deployer) Status(ctx context.Context, appID string) (AppStatus, error) {
	log.Debugf("building status for app %s", appID)

	pods, err := deployer.Client.ListPods(ctx, appSelector(appID))
	if err != nil {
		return AppStatus{}, fmt.Errorf("failed to list pods for app %s: %w", appID, err)
	}

	status := AppStatus{DeploymentID: appID}

	if len(pods) == 0 {
		status.Instances = append(status.Instances, deployer.statusClassifier().Classify(appID, nil))
		return status, nil
	}

	for i := range pods {
		status.Instances = append(status.Instances, deployer.statusClassifier().Classify(appID, &pods[i]))
	}

	return status, nil
}

// Undeploy tears down the service, the workload, and any straggling pods, in
// that order. Load balancer services are given a grace period to release
// their external addresses first. The first failing step aborts; completed
// steps stay done.
func (deployer *Deployer) Undeploy(ctx context.Context, appID string) error {
	log.Debugf("undeploying app %s", appID)

	if err := deployer.undeploy(ctx, appID); err != nil {
		log.Errorf("failed to undeploy app %s: %v", appID, err)
		return fmt.Errorf("failed to undeploy app %s: %w", appID, err)
	}
	return nil
}

func (deployer *Deployer) undeploy(ctx context.Context, appID string) error {
	service, err := deployer.Client.GetService(ctx, appID)
	if err != nil {
		return fmt.Errorf("failed to get service: %w", err)
	}

	if service.Spec.Type == corev1.ServiceTypeLoadBalancer {
		attempts := 6 * deployer.Config.LoadBalancerWaitMinutes
		for try := 1; try <= attempts && hasEmptyIngress(service); try++ {
			if try%6 == 0 {
				log.Warnf("waiting for load balancer of app %s to expose its external address, try %d", appID, try)
			} else {
				log.Debugf("waiting for load balancer of app %s to expose its external address, try %d", appID, try)
			}
			sleep(lbWaitInterval)

			if service, err = deployer.Client.GetService(ctx, appID); err != nil {
				return fmt.Errorf("failed to get service: %w", err)
			}
		}
		log.Debugf("load balancer ingress for app %s: %v", appID, service.Status.LoadBalancer.Ingress)
	}

	if err := deployer.Client.DeleteService(ctx, appID); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	if err := deployer.Client.DeleteDeployment(ctx, appID); err != nil {
		return fmt.Errorf("failed to delete deployment: %w", err)
	}
	if err := deployer.Client.DeletePods(ctx, appSelector(appID)); err != nil {
		return fmt.Errorf("failed to delete pods: %w", err)
	}
	return nil
}

// List returns the sorted deployment ids of every app the deployer manages in
// its namespace.
func (deployer *Deployer) List(ctx context.Context) ([]string, error) {
	services, err := deployer.Client.ListServices(ctx, managedSelector())
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	ids := make([]string, 0, len(services))
	for _, service := range services {
		ids = append(ids, service.Labels[LabelAppID])
	}
	slices.Sort(ids)

	return ids, nil
}

// AppManifests is the resource pair a deploy would create for a request.
type AppManifests struct {
	AppID    string
	Service  *corev1.Service
	Workload *appsv1.Deployment
}

// Manifests builds the would-be resources for a request without touching the
// cluster.
func (deployer *Deployer) Manifests(request AppDeploymentRequest) (*AppManifests, error) {
	appID := DeploymentID(request)
	labels := DeploymentLabels(appID, request)

	port, err := externalPort(request)
	if err != nil {
		return nil, err
	}

	count, err := instanceCount(request)
	if err != nil {
		return nil, err
	}

	podSpec, err := buildPodSpec(deployer.Config, deployer.factory(), appID, request, port)
	if err != nil {
		return nil, err
	}

	return &AppManifests{
		AppID:    appID,
		Service:  buildService(appID, labels, port, deployer.Config.CreateLoadBalancer),
		Workload: buildDeployment(appID, labels, int32(count), podSpec),
	}, nil
}

func (deployer *Deployer) factory() ContainerFactory {
	if deployer.Containers != nil {
		return deployer.Containers
	}
	return DefaultContainerFactory{Config: deployer.Config}
}

func (deployer *Deployer) statusClassifier() StatusClassifier {
	if deployer.Classifier != nil {
		return deployer.Classifier
	}
	return PodStatusClassifier{}
}

func externalPort(request AppDeploymentRequest) (int, error) {
	value := request.Definition.Property(PropertyServerPort, "")
	if value == "" {
		return defaultPort, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s property %q: %w", PropertyServerPort, value, err)
	}
	return port, nil
}

func instanceCount(request AppDeploymentRequest) (int, error) {
	value := request.EnvironmentProperty(PropertyCount, "")
	if value == "" {
		return defaultCount, nil
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s property %q: %w", PropertyCount, value, err)
	}
	return count, nil
}

func buildService(appID string, labels map[string]string, port int, loadBalancer bool) *corev1.Service {
	service := &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   appID,
			Labels: labels,
		},
		Spec: corev1.ServiceSpec{
			Selector: labels,
			// targetPort is set explicitly because its zero value cannot be
			// omitted from serialized manifests
			Ports: []corev1.ServicePort{{
				Port:       int32(port),
				TargetPort: intstr.FromInt32(int32(port)),
			}},
		},
	}
	if loadBalancer {
		service.Spec.Type = corev1.ServiceTypeLoadBalancer
	}
	return service
}

func buildDeployment(appID string, labels map[string]string, replicas int32, spec *corev1.PodSpec) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   appID,
			Labels: labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       *spec,
			},
		},
	}
}

func hasEmptyIngress(service *corev1.Service) bool {
	ingress := service.Status.LoadBalancer.Ingress
	return ingress != nil && len(ingress) == 0
}
