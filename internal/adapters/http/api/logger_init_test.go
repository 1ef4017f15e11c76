package api_test

import "github.com/okian/brewrank/pkg/logger"

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}
