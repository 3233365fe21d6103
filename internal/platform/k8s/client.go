// Package k8s provides the cluster scheduler adapter: a pod-state listing
// for snapshot capture and comparison, and readiness waits used when the
// management plane comes back up.
package k8s

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// Scheduler is the stage-facing contract of the cluster scheduler.
type Scheduler interface {
	// ListPods returns every pod keyed "namespace/name" with its phase.
	ListPods(ctx context.Context) (map[string]string, error)

	// WaitHealthy blocks until every node is Ready or the timeout elapses.
	WaitHealthy(ctx context.Context, timeout time.Duration) error
}

// Client wraps the Kubernetes API for scheduler queries.
type Client struct {
	clientset kubernetes.Interface
}

// NewClient creates a scheduler client from a kubeconfig file.
func NewClient(kubeconfigPath string) (*Client, error) {
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("build kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &Client{clientset: clientset}, nil
}

// NewClientForClientset wraps an existing clientset; used by tests with a
// fake clientset.
func NewClientForClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// ListPods implements Scheduler.
func (c *Client) ListPods(ctx context.Context) (map[string]string, error) {
	pods, err := c.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}

	states := make(map[string]string, len(pods.Items))
	for _, pod := range pods.Items {
		states[pod.Namespace+"/"+pod.Name] = string(pod.Status.Phase)
	}
	return states, nil
}

// WaitHealthy implements Scheduler.
func (c *Client) WaitHealthy(ctx context.Context, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, 10*time.Second, timeout, true, func(ctx context.Context) (bool, error) {
		nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			return false, nil
		}
		if len(nodes.Items) == 0 {
			return false, nil
		}
		for _, node := range nodes.Items {
			if !isNodeReady(&node) {
				return false, nil
			}
		}
		return true, nil
	})
}

func isNodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}
