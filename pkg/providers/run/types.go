// Copyright (c) The gleich-tech-switch Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package run

import (
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
)

const (
	// ServingAPIVersion is the API version of service objects.
	ServingAPIVersion = "serving.knative.dev/v1"
	// DomainsAPIVersion is the API version of domain mapping objects.
	DomainsAPIVersion = "domains.cloudrun.com/v1"

	// MaxScaleAnnotation caps the number of autoscaled instances.
	MaxScaleAnnotation = "autoscaling.knative.dev/maxScale"
	// ClientNameAnnotation records the client which created the object.
	ClientNameAnnotation = "run.googleapis.com/client-name"

	clientName = "gleich-tech-switch"
)

// Service is a Cloud Run (Knative serving) service.
type Service struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ServiceSpec `json:"spec,omitempty"`
}

// ServiceSpec holds the desired state of a service.
type ServiceSpec struct {
	Template RevisionTemplate `json:"template"`
	Traffic  []TrafficTarget  `json:"traffic,omitempty"`
}

// RevisionTemplate describes the revisions created from the service.
type RevisionTemplate struct {
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec RevisionSpec `json:"spec"`
}

// RevisionSpec holds the desired state of a revision.
type RevisionSpec struct {
	ContainerConcurrency int64              `json:"containerConcurrency,omitempty"`
	TimeoutSeconds       int64              `json:"timeoutSeconds,omitempty"`
	Containers           []corev1.Container `json:"containers"`
}

// TrafficTarget routes a share of the traffic to a revision.
type TrafficTarget struct {
	Percent        int64  `json:"percent"`
	LatestRevision bool   `json:"latestRevision,omitempty"`
	RevisionName   string `json:"revisionName,omitempty"`
}

// ServiceList is the response of a list call.
// A response without items means there are no services.
type ServiceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []Service `json:"items,omitempty"`
}

// DomainMapping maps a custom domain to a service route.
type DomainMapping struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DomainMappingSpec `json:"spec"`
}

// DomainMappingSpec holds the desired state of a domain mapping.
type DomainMappingSpec struct {
	RouteName       string `json:"routeName"`
	CertificateMode string `json:"certificateMode,omitempty"`
}

// setIAMPolicyRequest is the body of a setIamPolicy call.
type setIAMPolicyRequest struct {
	Policy *api.AccessPolicy `json:"policy"`
}

// NewService returns the service body creating the handle service with the given spec.
// All traffic is routed to the latest revision.
func NewService(handle api.RemoteServiceHandle, spec *api.ServiceSpec) (*Service, error) {
	if spec.Image == "" {
		return nil, fmt.Errorf("service '%s' has no image", handle.Name())
	}

	limits := corev1.ResourceList{}
	if spec.CPU != "" {
		cpu, err := resource.ParseQuantity(spec.CPU)
		if err != nil {
			return nil, fmt.Errorf("invalid cpu limit '%s': %w", spec.CPU, err)
		}
		limits[corev1.ResourceCPU] = cpu
	}
	if spec.Memory != "" {
		memory, err := resource.ParseQuantity(spec.Memory)
		if err != nil {
			return nil, fmt.Errorf("invalid memory limit '%s': %w", spec.Memory, err)
		}
		limits[corev1.ResourceMemory] = memory
	}

	container := corev1.Container{
		Name:  handle.Name(),
		Image: spec.Image,
	}
	if len(limits) > 0 {
		container.Resources = corev1.ResourceRequirements{Limits: limits}
	}
	if spec.Port != 0 {
		container.Ports = []corev1.ContainerPort{{ContainerPort: spec.Port}}
	}

	templateAnnotations := map[string]string{ClientNameAnnotation: clientName}
	if spec.MaxScale > 0 {
		templateAnnotations[MaxScaleAnnotation] = strconv.Itoa(spec.MaxScale)
	}

	return &Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: ServingAPIVersion,
			Kind:       "Service",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      handle.Name(),
			Namespace: handle.Project(),
		},
		Spec: ServiceSpec{
			Template: RevisionTemplate{
				ObjectMeta: metav1.ObjectMeta{Annotations: templateAnnotations},
				Spec: RevisionSpec{
					ContainerConcurrency: spec.Concurrency,
					TimeoutSeconds:       int64(spec.Timeout.Seconds()),
					Containers:           []corev1.Container{container},
				},
			},
			Traffic: []TrafficTarget{{Percent: 100, LatestRevision: true}},
		},
	}, nil
}

// NewDomainMapping returns the body mapping the domain to the handle service.
func NewDomainMapping(handle api.RemoteServiceHandle, domain string) *DomainMapping {
	return &DomainMapping{
		TypeMeta: metav1.TypeMeta{
			APIVersion: DomainsAPIVersion,
			Kind:       "DomainMapping",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      domain,
			Namespace: handle.Project(),
		},
		Spec: DomainMappingSpec{RouteName: handle.Name()},
	}
}
