package jobs

import "github.com/labstack/echo/v4"

type Handler interface {
	CreateJob() echo.HandlerFunc
	GetJob() echo.HandlerFunc
	SubmitSelection() echo.HandlerFunc
	QueueLen() echo.HandlerFunc
	ClearQueue() echo.HandlerFunc
	UploadFile() echo.HandlerFunc
	UploadVideo() echo.HandlerFunc
	UploadArchive() echo.HandlerFunc
	GetFile() echo.HandlerFunc
	ListFiles() echo.HandlerFunc
	DeleteFile() echo.HandlerFunc
	Notify() echo.HandlerFunc
	OfferSelection() echo.HandlerFunc
	Download() echo.HandlerFunc
}
