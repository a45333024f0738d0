package controllers

import (
	"scamazon_go/middleware"
	"scamazon_go/services"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImageController 图片上传控制器
type ImageController struct {
	uploader *utils.FileUploader
	images   *services.ImageService
	logger   *zap.Logger
}

// NewImageController 创建图片控制器实例
func NewImageController(uploader *utils.FileUploader, images *services.ImageService, logger *zap.Logger) *ImageController {
	return &ImageController{uploader: uploader, images: images, logger: logger}
}

// UploadImage 上传图片（multipart字段 image）
// @Summary 上传图片
// @Tags images
// @Security Bearer
// @Router /api/images [post]
func (ic *ImageController) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	saved, err := ic.uploader.Save(ctx, file)
	if err != nil {
		utils.BadRequest(c, err)
		return
	}

	image, err := ic.images.RecordImage(ctx, middleware.UserID(c), saved.URL, saved.FileName, saved.FileSize)
	if err != nil {
		if delErr := ic.uploader.Delete(ctx, saved.FileName); delErr != nil {
			ic.logger.Warn("failed to remove orphan upload", zap.String("file", saved.FileName), zap.Error(delErr))
		}
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, image)
}
