package deployer

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/kubedeployer/kubedeployer/internal/k8s"
)

func newTestDeployer(config Config, objects ...runtime.Object) (*Deployer, *fake.Clientset) {
	clientset := fake.NewSimpleClientset(objects...)
	return NewDeployer(k8s.FromClientset(clientset, "default"), config), clientset
}

func stubSleep(t *testing.T) *int {
	t.Helper()

	var count int
	original := sleep
	sleep = func(time.Duration) { count++ }
	t.Cleanup(func() { sleep = original })

	return &count
}

func appPod(name, appID string, phase corev1.PodPhase, ready bool) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels:    map[string]string{LabelAppID: appID},
		},
		Status: corev1.PodStatus{
			Phase:             phase,
			ContainerStatuses: []corev1.ContainerStatus{{Ready: ready}},
		},
	}
}

func TestDeploy(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig())

	appID, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition: AppDefinition{
			Name:       "sample.app",
			Properties: map[string]string{PropertyServerPort: "9090"},
		},
		Image:       "example/sample:latest",
		Environment: map[string]string{PropertyCount: "2"},
	})
	require.NoError(t, err)
	require.Equal(t, "sample-app", appID)

	service, err := clientset.CoreV1().Services("default").Get(context.Background(), "sample-app", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(9090), service.Spec.Ports[0].Port)
	require.Equal(t, intstr.FromInt32(9090), service.Spec.Ports[0].TargetPort)
	require.Equal(t, "sample-app", service.Spec.Selector[LabelAppID])
	require.Equal(t, "sample-app", service.Labels[LabelDeploymentID])
	require.Empty(t, service.Spec.Type)

	workload, err := clientset.AppsV1().Deployments("default").Get(context.Background(), "sample-app", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(2), *workload.Spec.Replicas)
	require.Equal(t, "sample-app", workload.Spec.Selector.MatchLabels[LabelAppID])

	container := workload.Spec.Template.Spec.Containers[0]
	require.Equal(t, "example/sample:latest", container.Image)
	require.Equal(t, int32(9090), container.Ports[0].ContainerPort)
	require.Equal(t, "512Mi", container.Resources.Limits.Memory().String())
	require.Equal(t, "500m", container.Resources.Limits.Cpu().String())
}

func TestDeployDefaults(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig())

	appID, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition: AppDefinition{Name: "sample"},
		Image:      "example/sample:latest",
	})
	require.NoError(t, err)
	require.Equal(t, "sample", appID)

	service, err := clientset.CoreV1().Services("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(8080), service.Spec.Ports[0].Port)

	workload, err := clientset.AppsV1().Deployments("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(1), *workload.Spec.Replicas)
}

func TestDeployLoadBalancer(t *testing.T) {
	config := DefaultConfig()
	config.CreateLoadBalancer = true
	config.ImagePullSecret = "registry-creds"

	deployer, clientset := newTestDeployer(config)

	_, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition: AppDefinition{Name: "sample"},
		Image:      "example/sample:latest",
	})
	require.NoError(t, err)

	service, err := clientset.CoreV1().Services("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, corev1.ServiceTypeLoadBalancer, service.Spec.Type)

	workload, err := clientset.AppsV1().Deployments("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, "registry-creds", workload.Spec.Template.Spec.ImagePullSecrets[0].Name)
}

func TestDeployConflictWithRunningApp(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig(), appPod("sample-0", "sample", corev1.PodRunning, true))

	_, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition: AppDefinition{Name: "sample"},
		Image:      "example/sample:latest",
	})
	require.ErrorIs(t, err, ErrDeploymentConflict)
	require.True(t, IsConflict(err))

	services, err := clientset.CoreV1().Services("default").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, services.Items)
}

func TestDeployConflictFromPlatform(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig())

	clientset.PrependReactor("create", "services", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, kerrors.NewAlreadyExists(schema.GroupResource{Resource: "services"}, "sample")
	})

	_, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition: AppDefinition{Name: "sample"},
		Image:      "example/sample:latest",
	})
	require.ErrorIs(t, err, ErrDeploymentConflict)
}

func TestDeployInvalidPort(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig())

	_, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition: AppDefinition{
			Name:       "sample",
			Properties: map[string]string{PropertyServerPort: "not-a-port"},
		},
		Image: "example/sample:latest",
	})

	var numErr *strconv.NumError
	require.ErrorAs(t, err, &numErr)

	// nothing was created: the port parses before the service
	services, listErr := clientset.CoreV1().Services("default").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, listErr)
	require.Empty(t, services.Items)
}

func TestDeployInvalidCountLeavesService(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig())

	_, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition:  AppDefinition{Name: "sample"},
		Image:       "example/sample:latest",
		Environment: map[string]string{PropertyCount: "two"},
	})

	var numErr *strconv.NumError
	require.ErrorAs(t, err, &numErr)

	// the count parses after the service is created, so the service dangles
	_, getErr := clientset.CoreV1().Services("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.NoError(t, getErr)

	_, getErr = clientset.AppsV1().Deployments("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.True(t, kerrors.IsNotFound(getErr))
}

func TestDeployInvalidLimitLeavesService(t *testing.T) {
	deployer, clientset := newTestDeployer(DefaultConfig())

	_, err := deployer.Deploy(context.Background(), AppDeploymentRequest{
		Definition:  AppDefinition{Name: "sample"},
		Image:       "example/sample:latest",
		Environment: map[string]string{PropertyMemory: "lots"},
	})
	require.ErrorContains(t, err, "invalid memory limit")

	_, getErr := clientset.CoreV1().Services("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.NoError(t, getErr)

	_, getErr = clientset.AppsV1().Deployments("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.True(t, kerrors.IsNotFound(getErr))
}

func TestStatus(t *testing.T) {
	deployer, _ := newTestDeployer(
		DefaultConfig(),
		appPod("sample-0", "sample", corev1.PodRunning, true),
		appPod("sample-1", "sample", corev1.PodPending, false),
		appPod("other-0", "other", corev1.PodRunning, true),
	)

	status, err := deployer.Status(context.Background(), "sample")
	require.NoError(t, err)

	require.Equal(t, "sample", status.DeploymentID)
	require.Len(t, status.Instances, 2)
	require.Equal(t, StatePartial, status.State())
}

func TestStatusBeforeDeploy(t *testing.T) {
	deployer, _ := newTestDeployer(DefaultConfig())

	status, err := deployer.Status(context.Background(), "sample")
	require.NoError(t, err)

	require.Equal(t, StateUnknown, status.State())
	require.Len(t, status.Instances, 1)
	require.Equal(t, "sample-0", status.Instances[0].ID)
}

func TestUndeploy(t *testing.T) {
	sleeps := stubSleep(t)

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "sample", Namespace: "default"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeClusterIP},
	}
	workload := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "sample", Namespace: "default"},
	}

	deployer, clientset := newTestDeployer(DefaultConfig(), service, workload)

	var selectors []string
	clientset.PrependReactor("delete-collection", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		restrictions := action.(k8stesting.DeleteCollectionAction).GetListRestrictions()
		selectors = append(selectors, restrictions.Labels.String())
		return true, nil, nil
	})

	require.NoError(t, deployer.Undeploy(context.Background(), "sample"))

	_, err := clientset.CoreV1().Services("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.True(t, kerrors.IsNotFound(err))

	_, err = clientset.AppsV1().Deployments("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.True(t, kerrors.IsNotFound(err))

	require.Equal(t, []string{appSelector("sample")}, selectors)
	require.Zero(t, *sleeps)
}

func TestUndeployMissingApp(t *testing.T) {
	deployer, _ := newTestDeployer(DefaultConfig())

	err := deployer.Undeploy(context.Background(), "ghost")
	require.ErrorContains(t, err, "failed to undeploy app ghost")
	require.True(t, kerrors.IsNotFound(err))
}

func TestUndeployWaitsForLoadBalancer(t *testing.T) {
	sleeps := stubSleep(t)

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "sample", Namespace: "default"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
		Status: corev1.ServiceStatus{
			LoadBalancer: corev1.LoadBalancerStatus{Ingress: []corev1.LoadBalancerIngress{}},
		},
	}
	workload := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "sample", Namespace: "default"},
	}

	config := DefaultConfig()
	config.LoadBalancerWaitMinutes = 1

	deployer, clientset := newTestDeployer(config, service, workload)
	clientset.PrependReactor("delete-collection", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, nil
	})

	require.NoError(t, deployer.Undeploy(context.Background(), "sample"))

	// ingress never shows up, so all 6 polls per configured minute are spent
	require.Equal(t, 6, *sleeps)

	_, err := clientset.CoreV1().Services("default").Get(context.Background(), "sample", metav1.GetOptions{})
	require.True(t, kerrors.IsNotFound(err))
}

func TestUndeploySkipsWaitWhenIngressPresent(t *testing.T) {
	sleeps := stubSleep(t)

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "sample", Namespace: "default"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
		Status: corev1.ServiceStatus{
			LoadBalancer: corev1.LoadBalancerStatus{
				Ingress: []corev1.LoadBalancerIngress{{IP: "203.0.113.10"}},
			},
		},
	}
	workload := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "sample", Namespace: "default"},
	}

	deployer, clientset := newTestDeployer(DefaultConfig(), service, workload)
	clientset.PrependReactor("delete-collection", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, nil
	})

	require.NoError(t, deployer.Undeploy(context.Background(), "sample"))
	require.Zero(t, *sleeps)
}

func TestList(t *testing.T) {
	managed := func(name string) *corev1.Service {
		return &corev1.Service{
			ObjectMeta: metav1.ObjectMeta{
				Name:      name,
				Namespace: "default",
				Labels:    DeploymentLabels(name, AppDeploymentRequest{}),
			},
		}
	}

	deployer, _ := newTestDeployer(
		DefaultConfig(),
		managed("ticker"),
		managed("archiver"),
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "unrelated", Namespace: "default"}},
	)

	ids, err := deployer.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"archiver", "ticker"}, ids)
}

func TestManifests(t *testing.T) {
	deployer, _ := newTestDeployer(DefaultConfig())

	manifests, err := deployer.Manifests(AppDeploymentRequest{
		Definition: AppDefinition{
			Name:       "ticker",
			Properties: map[string]string{PropertyServerPort: "9090"},
		},
		Image:       "example/ticker:1.4",
		Environment: map[string]string{PropertyCount: "3"},
	})
	require.NoError(t, err)

	require.Equal(t, "ticker", manifests.AppID)
	require.Equal(t, "Service", manifests.Service.Kind)
	require.Equal(t, int32(9090), manifests.Service.Spec.Ports[0].Port)
	require.Equal(t, "Deployment", manifests.Workload.Kind)
	require.Equal(t, int32(3), *manifests.Workload.Spec.Replicas)
}

func TestManifestsInvalidCount(t *testing.T) {
	deployer, _ := newTestDeployer(DefaultConfig())

	_, err := deployer.Manifests(AppDeploymentRequest{
		Definition:  AppDefinition{Name: "ticker"},
		Image:       "example/ticker:1.4",
		Environment: map[string]string{PropertyCount: "many"},
	})

	var numErr *strconv.NumError
	require.ErrorAs(t, err, &numErr)
}
