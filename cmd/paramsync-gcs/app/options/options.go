package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/paramsync/internal/gcs"
	"github.com/autopeer-io/paramsync/pkg/app"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/options"
)

type ServerOptions struct {
	GCSOptions    *options.GCSOptions    `json:"gcs" mapstructure:"gcs"`
	HttpOptions   *options.HttpOptions   `json:"http" mapstructure:"http"`
	MqttOptions   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	S3Options     *options.S3Options     `json:"s3" mapstructure:"s3"`
	CacheOptions  *options.CacheOptions  `json:"cache" mapstructure:"cache"`
	ParamOptions  *options.ParamOptions  `json:"param" mapstructure:"param"`
	SerialOptions *options.SerialOptions `json:"serial" mapstructure:"serial"`
	Log           *log.Options           `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ServerOptions)(nil)

func NewServerOptions() *ServerOptions {
	o := &ServerOptions{
		GCSOptions:    options.NewGCSOptions(),
		HttpOptions:   options.NewHttpOptions(),
		MqttOptions:   options.NewMqttOptions(),
		S3Options:     options.NewS3Options(),
		CacheOptions:  options.NewCacheOptions(),
		ParamOptions:  options.NewParamOptions(),
		SerialOptions: options.NewSerialOptions(),
		Log:           log.NewOptions(),
	}

	return o
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.GCSOptions.AddFlags(fss.FlagSet("gcs"))
	o.ParamOptions.AddFlags(fss.FlagSet("param"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.SerialOptions.AddFlags(fss.FlagSet("serial"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ServerOptions) Complete() error {
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.GCSOptions.Validate()...)
	errs = append(errs, o.ParamOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	if o.CacheOptions.Backend == options.CacheBackendS3 {
		errs = append(errs, o.S3Options.Validate()...)
	}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.SerialOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) Config() (*gcs.Config, error) {
	return &gcs.Config{
		GCSOptions:    o.GCSOptions,
		HttpOptions:   o.HttpOptions,
		MqttOptions:   o.MqttOptions,
		S3Options:     o.S3Options,
		CacheOptions:  o.CacheOptions,
		ParamOptions:  o.ParamOptions,
		SerialOptions: o.SerialOptions,
	}, nil
}
