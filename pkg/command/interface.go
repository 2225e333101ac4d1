package command

import (
	"bytes"
	"context"
	"reflect"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/regflow/pkg/workflow"
)

// Bind returns a copy of base with the inputs overlaid. Keys are the yaml tags of the fields of
// the descriptor; an unknown key is an error.
func Bind[S Spec](base S, in map[string]any) (S, error) {
	var spec S

	err := overlay(base, &spec, in)
	if err != nil {
		return spec, err
	}

	return spec, nil
}

// overlay copies base into target through YAML, which leaves no memory shared between the two,
// then decodes in on top of it.
func overlay(base, target any, in map[string]any) error {
	raw, err := yaml.Marshal(base)
	if err != nil {
		return errors.Wrap(err, "unable to marshal descriptor")
	}

	err = yaml.Unmarshal(raw, target)
	if err != nil {
		return errors.Wrap(err, "unable to copy descriptor")
	}

	if len(in) == 0 {
		return nil
	}

	raw, err = yaml.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "unable to marshal inputs")
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	err = dec.Decode(target)
	if err != nil {
		return errors.Wrapf(ErrInvalidValue, "%v", err)
	}

	return nil
}

type commandInterface struct {
	name string
	base Spec
}

// NewInterface adapts a descriptor into a workflow interface. Each job binds its inputs onto a
// copy of base, checks the files the command reads, launches the command in the job directory
// and returns the expected outputs once they exist.
func NewInterface(name string, base Spec) workflow.Interface {
	return &commandInterface{name: name, base: base}
}

func (c *commandInterface) Run(ctx context.Context, rt *workflow.Runtime, in workflow.Inputs) (workflow.Outputs, error) {
	spec, err := bindDynamic(c.base, in)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to bind %s inputs", c.name)
	}

	if !rt.DryRun() {
		err = Validate(spec)
		if err != nil {
			return nil, err
		}
	}

	args, err := spec.Args()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build %s arguments", c.name)
	}

	err = rt.Exec(ctx, spec.Executable(), args)
	if err != nil {
		return nil, err
	}

	outs, err := spec.Outputs(rt.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s outputs", c.name)
	}

	if !rt.DryRun() {
		err = rt.AwaitFiles(ctx, OutputFiles(outs))
		if err != nil {
			return nil, err
		}
	}

	return outs, nil
}

// Fingerprint covers the static parameters of the descriptor.
func (c *commandInterface) Fingerprint() string {
	raw, err := yaml.Marshal(c.base)
	if err != nil {
		return "command:" + c.name
	}

	return "command:" + c.name + "\n" + string(raw)
}

// OutputFiles lists the paths held by the outputs of a descriptor.
func OutputFiles(outs map[string]any) []string {
	var files []string

	for _, value := range outs {
		switch typed := value.(type) {
		case string:
			files = append(files, typed)
		case []string:
			files = append(files, typed...)
		}
	}

	return files
}

// bindDynamic is Bind for a descriptor only known through the Spec interface.
func bindDynamic(base Spec, in map[string]any) (Spec, error) {
	typ := reflect.TypeOf(base)
	isPointer := typ.Kind() == reflect.Pointer
	if isPointer {
		typ = typ.Elem()
	}

	target := reflect.New(typ)

	err := overlay(base, target.Interface(), in)
	if err != nil {
		return nil, err
	}

	bound := target.Elem().Interface()
	if isPointer {
		bound = target.Interface()
	}

	spec, ok := bound.(Spec)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidValue, "%s is not a descriptor", typ)
	}

	return spec, nil
}
