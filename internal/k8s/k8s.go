package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const fieldManager = "kubedeployer"

// Client exposes the slice of the cluster API the deployer consumes:
// services, deployments, and pods within a single namespace.
type Client struct {
	clientset kubernetes.Interface
	namespace string
}

func NewClientFromKubeConfig(path, namespace string) (*Client, error) {
	restcfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to build k8 config: %w", err)
	}
	return NewClient(restcfg, namespace)
}

func NewClient(cfg *rest.Config, namespace string) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create k8 clientset: %w", err)
	}
	return FromClientset(clientset, namespace), nil
}

// FromClientset wraps an existing clientset. Tests use it to inject fakes.
func FromClientset(clientset kubernetes.Interface, namespace string) *Client {
	if namespace == "" {
		namespace = "default"
	}
	return &Client{clientset: clientset, namespace: namespace}
}

func (client Client) Namespace() string { return client.namespace }

func (client Client) CreateService(ctx context.Context, service *corev1.Service) (*corev1.Service, error) {
	return client.clientset.CoreV1().
		Services(client.namespace).
		Create(ctx, service, metav1.CreateOptions{FieldManager: fieldManager})
}

func (client Client) GetService(ctx context.Context, name string) (*corev1.Service, error) {
	return client.clientset.CoreV1().
		Services(client.namespace).
		Get(ctx, name, metav1.GetOptions{})
}

func (client Client) ListServices(ctx context.Context, selector string) ([]corev1.Service, error) {
	list, err := client.clientset.CoreV1().
		Services(client.namespace).
		List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (client Client) DeleteService(ctx context.Context, name string) error {
	return client.clientset.CoreV1().
		Services(client.namespace).
		Delete(ctx, name, metav1.DeleteOptions{})
}

func (client Client) CreateDeployment(ctx context.Context, deployment *appsv1.Deployment) (*appsv1.Deployment, error) {
	return client.clientset.AppsV1().
		Deployments(client.namespace).
		Create(ctx, deployment, metav1.CreateOptions{FieldManager: fieldManager})
}

func (client Client) GetDeployment(ctx context.Context, name string) (*appsv1.Deployment, error) {
	return client.clientset.AppsV1().
		Deployments(client.namespace).
		Get(ctx, name, metav1.GetOptions{})
}

func (client Client) DeleteDeployment(ctx context.Context, name string) error {
	return client.clientset.AppsV1().
		Deployments(client.namespace).
		Delete(ctx, name, metav1.DeleteOptions{})
}

func (client Client) ListPods(ctx context.Context, selector string) ([]corev1.Pod, error) {
	list, err := client.clientset.CoreV1().
		Pods(client.namespace).
		List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (client Client) DeletePods(ctx context.Context, selector string) error {
	return client.clientset.CoreV1().
		Pods(client.namespace).
		DeleteCollection(ctx, metav1.DeleteOptions{}, metav1.ListOptions{LabelSelector: selector})
}
