package templatebuild

import (
	"context"

	"github.com/askiada/regflow/pkg/transforms"
	"github.com/askiada/regflow/pkg/workflow"
)

func makeTransformLists() workflow.Interface {
	return workflow.Func("MakeListsOfTransformLists", func(_ context.Context, in workflow.Inputs) (workflow.Outputs, error) {
		warps, err := in.Strings("warp_transform_list")
		if err != nil {
			return nil, err
		}

		affines, err := in.Strings("affine_transform_list")
		if err != nil {
			return nil, err
		}

		pairs, err := transforms.MakeTransformLists(warps, affines)
		if err != nil {
			return nil, err
		}

		return workflow.Outputs{"out": pairs}, nil
	})
}

func transformListWithGradientWarps() workflow.Interface {
	return workflow.Func("MakeTransformListWithGradientWarps", func(_ context.Context, in workflow.Inputs) (workflow.Outputs, error) {
		affine, err := in.String("average_affine_transform")
		if err != nil {
			return nil, err
		}

		warp, err := in.String("gradient_step_warp")
		if err != nil {
			return nil, err
		}

		return workflow.Outputs{"transform_list": transforms.TransformListWithGradientWarps(affine, warp)}, nil
	})
}

func flattenTransformsAndImages() workflow.Interface {
	return workflow.Func("FlattenTransformAndImagesList", func(_ context.Context, in workflow.Inputs) (workflow.Outputs, error) {
		var passive []map[string]string

		err := in.Decode("passive_images", &passive)
		if err != nil {
			return nil, err
		}

		var series [][]string

		err = in.Decode("transformation_series", &series)
		if err != nil {
			return nil, err
		}

		flat, err := transforms.FlattenTransformsAndImages(passive, series)
		if err != nil {
			return nil, err
		}

		return workflow.Outputs{
			"flattened_images":          flat.Images,
			"flattened_transforms":      flat.Transforms,
			"flattened_image_nametypes": flat.NameTypes,
		}, nil
	})
}

func renestDeformedPassiveImages() workflow.Interface {
	return workflow.Func("RenestDeformedPassiveImages", func(_ context.Context, in workflow.Inputs) (workflow.Outputs, error) {
		deformed, err := in.Strings("deformed_passive_images")
		if err != nil {
			return nil, err
		}

		nameTypes, err := in.Strings("flattened_image_nametypes")
		if err != nil {
			return nil, err
		}

		nested, err := transforms.RenestDeformedPassiveImages(deformed, nameTypes)
		if err != nil {
			return nil, err
		}

		return workflow.Outputs{
			"nested_imagetype_list":     nested.Images,
			"output_average_image_list": nested.AverageNames,
			"image_type_list":           nested.Postfixes,
		}, nil
	})
}
