package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const MimeImage = "image/"

// MaxCoverSize 课程封面上传上限 5MB
const MaxCoverSize = 5 << 20

// DefaultUsername 用户未设置昵称时排行榜显示的名字
const DefaultUsername = "Usuário"
