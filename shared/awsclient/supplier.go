package awsclient

import (
	"github.com/aws/aws-sdk-go-v2/aws"
)

type ClientBuilder[T, O any] func(config aws.Config, optFns ...func(*O)) *T

// Supplier creates an AWS service client on the first call to Supplier.Get and then returns
// that instance on any subsequent calls, so that each service client is built once per
// process and shared.
//
// Supplier is NOT goroutine safe, but the returned AWS clients are (per AWS documentation), so
// Supplier.Get should only be called in the "main" goroutine; the returned client can be shared among goroutines.
type Supplier[T, O any] struct {
	builder  ClientBuilder[T, O]
	instance *T
}

func NewSupplier[T, O any](builder ClientBuilder[T, O]) *Supplier[T, O] {
	return &Supplier[T, O]{
		builder: builder,
	}
}

func (s *Supplier[T, O]) Get(awsConfig aws.Config, optFns ...func(*O)) *T {
	if s.instance == nil {
		s.instance = s.builder(awsConfig, optFns...)
	}
	return s.instance
}
