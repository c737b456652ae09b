package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"product_backend/internal/shared/apperror"
)

// BindID はパスパラメータnameをUUIDとしてバインドします。
// 形式が不正な場合は apperror.Validation を返します。
func BindID(c *gin.Context, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return uuid.Nil, apperror.NewValidation("invalid format for parameter "+name, err)
	}
	return id, nil
}
