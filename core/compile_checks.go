package core

import (
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-soap/envelope"
)

var (
	_ Invoker       = (*Client)(nil)
	_ CallJournal   = (*MemoryCallJournal)(nil)
	_ EnvelopeCodec = envelope.Codec{}

	_ RawConfigLoader = YAMLFileLoader{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
