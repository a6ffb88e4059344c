package consts

const (
	AssetRegistryKey      = "asset:registry"
	AssetRegistryOrderKey = "asset:registry:order"
	UploadEventChannel    = "upload:events:"
)

const (
	RegistryCleanLock = "lock:registry:clean"
)
