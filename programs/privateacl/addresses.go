package privateacl

// allowedHashes 允许列表地址的摘要，新增条目用 HashAddress 计算
var allowedHashes = [][32]byte{
	{
		0x3e, 0x6c, 0x9b, 0xd6, 0x1e, 0x8c, 0xa0, 0xe0, 0xa6, 0x46, 0x32, 0x7d, 0x9b, 0x49, 0xc9, 0xac,
		0x1c, 0x8d, 0x77, 0xb3, 0x84, 0x4e, 0x03, 0x5b, 0x22, 0x78, 0x43, 0x36, 0x7e, 0x49, 0x66, 0x89,
	},
}
