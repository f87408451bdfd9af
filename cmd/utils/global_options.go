package utils

import (
	"github.com/sirupsen/logrus"
)

type GlobalOptionsType struct {
	LogLevel          logrus.Level
	Environment       string
	Version           string
	GitCommit         string
	Domain            string
	NetworkPassphrase string
}
