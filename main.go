// Package main is a module which finds circles in laser profile data
package main

import (
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/vision"

	"github.com/viam-modules/profile-hough/hough"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: vision.API, Model: hough.Model},
	)
}
